package virtual

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"hubpilot/internal/telemetry"
)

// countingWriter is a race-safe telemetry sink for tests.
type countingWriter struct {
	mu   sync.Mutex
	rows []telemetry.Row
}

func (w *countingWriter) Write(row telemetry.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, row)
	return nil
}

func (w *countingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func (w *countingWriter) last() telemetry.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[len(w.rows)-1]
}

func testRobot(opts Options) *Robot {
	if opts.TickInterval == 0 {
		opts.TickInterval = 5 * time.Millisecond
	}
	return New(opts)
}

func TestDrive_SignConventionAndSnap(t *testing.T) {
	r := testRobot(Options{})
	// Heading 0 (north), drive 100mm at 1000mm/s: finishes in 100ms.
	if err := r.Drive(context.Background(), 100, 1000); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	s := r.Snapshot()
	if math.Abs(s.DriveDistance-100) > 1e-9 {
		t.Errorf("driveDistance = %v, want exactly 100 after snap", s.DriveDistance)
	}
	if math.Abs(s.Y+100) > 1e-9 {
		t.Errorf("y = %v, want -100 (heading 0 drives up the canvas)", s.Y)
	}
	if math.Abs(s.X) > 1e-9 {
		t.Errorf("x = %v, want unchanged", s.X)
	}
}

func TestDrive_NegativeDistance(t *testing.T) {
	r := testRobot(Options{})
	if err := r.Drive(context.Background(), -50, 1000); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	s := r.Snapshot()
	if math.Abs(s.Y-50) > 1e-9 || math.Abs(s.DriveDistance+50) > 1e-9 {
		t.Errorf("reverse drive: y=%v distance=%v, want y=50 distance=-50", s.Y, s.DriveDistance)
	}
}

func TestStop_FreezesTurn(t *testing.T) {
	r := testRobot(Options{})
	done := make(chan error, 1)
	// 180° at 90°/s would take 2 seconds.
	go func() { done <- r.Turn(context.Background(), 180, 90) }()

	time.Sleep(60 * time.Millisecond)
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Turn returned error after Stop: %v", err)
	}

	frozen := r.Snapshot()
	if frozen.DriveAngle <= 0 || frozen.DriveAngle >= 180 {
		t.Errorf("driveAngle = %v, want partial progress frozen mid-turn", frozen.DriveAngle)
	}
	time.Sleep(60 * time.Millisecond)
	after := r.Snapshot()
	if after.DriveAngle != frozen.DriveAngle || after.Heading != frozen.Heading {
		t.Errorf("state changed after Stop: %+v -> %+v", frozen, after)
	}
}

func TestStop_InstallsFreshToken(t *testing.T) {
	r := testRobot(Options{})
	go func() { _ = r.Turn(context.Background(), 360, 90) }()
	time.Sleep(20 * time.Millisecond)
	_ = r.Stop(context.Background())

	// A command issued after Stop must not be pre-cancelled.
	if err := r.Drive(context.Background(), 10, 1000); err != nil {
		t.Fatalf("Drive after Stop: %v", err)
	}
	if s := r.Snapshot(); math.Abs(s.DriveDistance-10) > 1 {
		t.Errorf("drive after Stop did not run to completion: %+v", s)
	}
}

func TestTurn_PivotKinematics(t *testing.T) {
	r := testRobot(Options{
		Footprint: &Footprint{WidthMM: 120, LengthMM: 160, PivotForwardMM: 50},
	})
	// Pivot point starts 50mm ahead of the center at (0, -50). A 180° turn
	// swings the center around it to (0, -100).
	if err := r.Turn(context.Background(), 180, 3600); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	s := r.Snapshot()
	if math.Abs(s.Heading-180) > 1e-9 {
		t.Errorf("heading = %v, want 180", s.Heading)
	}
	if math.Abs(s.X) > 1e-6 || math.Abs(s.Y+100) > 1e-6 {
		t.Errorf("center = (%v, %v), want (0, -100)", s.X, s.Y)
	}
}

func TestTurn_NoFootprintKeepsPosition(t *testing.T) {
	r := testRobot(Options{})
	if err := r.Turn(context.Background(), 90, 3600); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	s := r.Snapshot()
	if s.X != 0 || s.Y != 0 {
		t.Errorf("in-place turn moved the robot: (%v, %v)", s.X, s.Y)
	}
	if math.Abs(s.Heading-90) > 1e-9 || math.Abs(s.DriveAngle-90) > 1e-9 {
		t.Errorf("heading=%v driveAngle=%v, want 90/90", s.Heading, s.DriveAngle)
	}
}

func TestArc_QuarterCircle(t *testing.T) {
	r := testRobot(Options{})
	// Heading 0, positive sweep: center sits to the right at (100, 0);
	// after 90° the robot is at (100, -100) heading east.
	if err := r.Arc(context.Background(), 100, 90, 2000); err != nil {
		t.Fatalf("Arc: %v", err)
	}
	s := r.Snapshot()
	if math.Abs(s.X-100) > 1e-6 || math.Abs(s.Y+100) > 1e-6 {
		t.Errorf("end position = (%v, %v), want (100, -100)", s.X, s.Y)
	}
	if math.Abs(s.Heading-90) > 1e-6 {
		t.Errorf("end heading = %v, want 90", s.Heading)
	}
	wantLen := math.Pi / 2 * 100
	if math.Abs(s.DriveDistance-wantLen) > 1e-6 {
		t.Errorf("driveDistance = %v, want arc length %v", s.DriveDistance, wantLen)
	}
	if math.Abs(s.DriveAngle-90) > 1e-6 {
		t.Errorf("driveAngle = %v, want 90", s.DriveAngle)
	}
}

func TestArc_NegativeSweepCurvesLeft(t *testing.T) {
	r := testRobot(Options{})
	if err := r.Arc(context.Background(), 100, -90, 2000); err != nil {
		t.Fatalf("Arc: %v", err)
	}
	s := r.Snapshot()
	if math.Abs(s.X+100) > 1e-6 || math.Abs(s.Y+100) > 1e-6 {
		t.Errorf("end position = (%v, %v), want (-100, -100)", s.X, s.Y)
	}
	if math.Abs(s.Heading+90) > 1e-6 {
		t.Errorf("end heading = %v, want -90", s.Heading)
	}
}

func TestDriveContinuous_RunsUntilStopped(t *testing.T) {
	r := testRobot(Options{})
	done := make(chan error, 1)
	go func() { done <- r.DriveContinuous(context.Background(), 1000, 0) }()

	time.Sleep(50 * time.Millisecond)
	_ = r.Stop(context.Background())
	if err := <-done; err != nil {
		t.Fatalf("DriveContinuous: %v", err)
	}
	if s := r.Snapshot(); s.DriveDistance <= 0 {
		t.Errorf("no distance accumulated: %+v", s)
	}
}

func TestMotor_RunByAngle(t *testing.T) {
	r := testRobot(Options{Motors: []string{"gripper"}})
	angle := 180.0
	if err := r.Motor(context.Background(), "gripper", &angle, 3600); err != nil {
		t.Fatalf("Motor: %v", err)
	}
	r.mu.Lock()
	m := *r.motors["gripper"]
	r.mu.Unlock()
	if math.Abs(m.Angle-180) > 1e-9 {
		t.Errorf("motor angle = %v, want 180", m.Angle)
	}
	if m.Speed != 0 {
		t.Errorf("motor speed = %v, want 0 after completion", m.Speed)
	}
}

func TestMotor_UnknownIsNoOp(t *testing.T) {
	r := testRobot(Options{})
	if err := r.Motor(context.Background(), "missing", nil, 100); err != nil {
		t.Errorf("unknown motor should not error: %v", err)
	}
}

func TestReset_ZeroesOdometryAndPose(t *testing.T) {
	r := testRobot(Options{})
	_ = r.Drive(context.Background(), 50, 1000)
	_ = r.Turn(context.Background(), 90, 3600)
	if err := r.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s := r.Snapshot()
	if s.X != 0 || s.Y != 0 || s.Heading != 0 || s.DriveDistance != 0 || s.DriveAngle != 0 {
		t.Errorf("reset left state behind: %+v", s)
	}
}

func TestTelemetry_TimerEmitsWhileConnected(t *testing.T) {
	w := &countingWriter{}
	r := testRobot(Options{TelemetryInterval: 50 * time.Millisecond, Writer: w})
	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	time.Sleep(180 * time.Millisecond)
	if got := w.count(); got < 2 {
		t.Fatalf("emitted %d rows, want at least 2", got)
	}
	row := w.last()
	if row.RobotID != r.ID() {
		t.Errorf("robot_id = %q, want %q", row.RobotID, r.ID())
	}
	if row.Hub.Battery.Voltage >= fullBatteryMV {
		t.Errorf("battery voltage %v did not drain from %v", row.Hub.Battery.Voltage, fullBatteryMV)
	}
}

func TestTelemetry_MotionTicksEmitExtraRows(t *testing.T) {
	w := &countingWriter{}
	r := testRobot(Options{TelemetryInterval: time.Hour, Writer: w})
	// The interval floor keeps the timer quiet for the whole test, so every
	// observed row comes from motion ticks.
	if err := r.Drive(context.Background(), 100, 1000); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if got := w.count(); got < 5 {
		t.Fatalf("emitted %d rows during a 100ms drive, want several per-tick rows", got)
	}
	row := w.last()
	if math.Abs(row.Drivebase.Distance-100) > 1e-9 {
		t.Errorf("final row distance = %v, want 100", row.Drivebase.Distance)
	}
}

func TestConnect_StateTransitions(t *testing.T) {
	r := testRobot(Options{})
	if got := r.State(); got != StateIdle {
		t.Fatalf("initial state = %v", got)
	}
	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := r.State(); got != StateConnected {
		t.Fatalf("state after connect = %v", got)
	}
	r.Disconnect()
	if got := r.State(); got != StateIdle {
		t.Fatalf("state after disconnect = %v", got)
	}
}
