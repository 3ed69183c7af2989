// Virtual differential-drive robot with a kinematic model and telemetry
package virtual

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"hubpilot/internal/logging"
	"hubpilot/internal/telemetry"
)

// State is the simulator's connection state.
type State string

const (
	StateIdle      State = "idle"
	StateConnected State = "connected"
	StateMoving    State = "moving"
)

const (
	defaultTickInterval      = 50 * time.Millisecond
	defaultTelemetryInterval = 100 * time.Millisecond
	// minTelemetryInterval matches the hub program's floor.
	minTelemetryInterval = 50 * time.Millisecond

	fullBatteryMV   = 8300.0
	idleCurrentMA   = 60.0
	motionCurrentMA = 450.0
	// batteryDrainMVPerSec is deliberately fast so long dev sessions show
	// battery movement on the dashboard.
	batteryDrainMVPerSec = 0.2
)

// Footprint describes the robot's physical outline and its center of
// rotation, which may be offset from the geometric center when the wheels
// are not centered.
type Footprint struct {
	WidthMM  float64 `yaml:"width_mm" json:"width_mm"`
	LengthMM float64 `yaml:"length_mm" json:"length_mm"`
	// Pivot offset from the geometric center, body frame: forward along the
	// heading, right perpendicular to it.
	PivotForwardMM float64 `yaml:"pivot_forward_mm" json:"pivot_forward_mm"`
	PivotRightMM   float64 `yaml:"pivot_right_mm" json:"pivot_right_mm"`
}

// Options configures a virtual robot.
type Options struct {
	RobotID           string
	TickInterval      time.Duration
	TelemetryInterval time.Duration
	Footprint         *Footprint
	Motors            []string
	Sensors           map[string]float64
	Writer            telemetry.Writer
}

// Robot simulates a hub with a differential drivebase. Motion commands block
// until they complete or are cancelled by Stop; an independent timer emits
// telemetry while connected, and each motion tick emits an extra row so
// externally observed paths stay smooth.
type Robot struct {
	id        string
	tick      time.Duration
	teleEvery time.Duration
	footprint *Footprint
	writer    telemetry.Writer
	rand      *rand.Rand
	now       func() time.Time

	mu       sync.Mutex
	state    State
	token    *motionToken
	teleStop context.CancelFunc

	// Kinematic state, robot frame heading, canvas frame position.
	x, y, heading float64
	driveDistance float64
	driveAngle    float64
	batteryMV     float64
	motors        map[string]*telemetry.MotorStatus
	sensors       map[string]float64
}

// New creates a disconnected virtual robot.
func New(opts Options) *Robot {
	if opts.RobotID == "" {
		opts.RobotID = "virtual-hub"
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.TelemetryInterval <= 0 {
		opts.TelemetryInterval = defaultTelemetryInterval
	}
	if opts.TelemetryInterval < minTelemetryInterval {
		opts.TelemetryInterval = minTelemetryInterval
	}
	motors := make(map[string]*telemetry.MotorStatus)
	for _, name := range opts.Motors {
		motors[name] = &telemetry.MotorStatus{}
	}
	sensors := make(map[string]float64)
	for name, v := range opts.Sensors {
		sensors[name] = v
	}
	return &Robot{
		id:        opts.RobotID,
		tick:      opts.TickInterval,
		teleEvery: opts.TelemetryInterval,
		footprint: opts.Footprint,
		writer:    opts.Writer,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		state:     StateIdle,
		token:     newMotionToken(),
		batteryMV: fullBatteryMV,
		motors:    motors,
		sensors:   sensors,
	}
}

// ID returns the robot identifier used on telemetry rows.
func (r *Robot) ID() string { return r.id }

// SetWriter swaps the telemetry sink. Call before Connect.
func (r *Robot) SetWriter(w telemetry.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer = w
}

// Connect transitions to connected and starts the periodic telemetry timer.
func (r *Robot) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return nil
	}
	r.state = StateConnected

	teleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.teleStop = cancel
	go r.telemetryLoop(logging.NewContext(teleCtx, logging.FromContext(ctx)), r.teleEvery)
	return nil
}

// Disconnect stops the telemetry timer and any in-flight motion.
func (r *Robot) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateIdle {
		return
	}
	r.token.cancel()
	r.token = newMotionToken()
	if r.teleStop != nil {
		r.teleStop()
		r.teleStop = nil
	}
	r.state = StateIdle
}

// Stop cancels any in-flight motion, zeroes all motor speeds, and installs a
// fresh cancellation token so subsequent commands are not pre-cancelled.
func (r *Robot) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token.cancel()
	r.token = newMotionToken()
	for _, m := range r.motors {
		m.Speed = 0
	}
	if r.state == StateMoving {
		r.state = StateConnected
	}
	return nil
}

// Reset zeroes the accumulated drivebase odometry and the pose, matching the
// hub's reset_drivebase command.
func (r *Robot) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.driveDistance = 0
	r.driveAngle = 0
	r.x, r.y, r.heading = 0, 0, 0
	for _, m := range r.motors {
		m.Angle = 0
	}
	return nil
}

// SetTelemetryInterval changes the telemetry timer period, clamped to the
// hub's 50ms floor. While connected the timer restarts on the new period.
func (r *Robot) SetTelemetryInterval(ctx context.Context, interval time.Duration) {
	if interval < minTelemetryInterval {
		interval = minTelemetryInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teleEvery = interval
	if r.teleStop == nil {
		return
	}
	r.teleStop()
	teleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.teleStop = cancel
	go r.telemetryLoop(logging.NewContext(teleCtx, logging.FromContext(ctx)), r.teleEvery)
}

// State returns the current connection state.
func (r *Robot) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot is a point-in-time copy of the kinematic state.
type Snapshot struct {
	State         State   `json:"state"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Heading       float64 `json:"heading"`
	DriveDistance float64 `json:"drive_distance"`
	DriveAngle    float64 `json:"drive_angle"`
	BatteryMV     float64 `json:"battery_mv"`
}

// Snapshot returns the current kinematic state.
func (r *Robot) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State:         r.state,
		X:             r.x,
		Y:             r.y,
		Heading:       r.heading,
		DriveDistance: r.driveDistance,
		DriveAngle:    r.driveAngle,
		BatteryMV:     r.batteryMV,
	}
}

// telemetryLoop emits rows at a fixed interval until the context is done. It
// runs independently of motion; motion ticks emit extra rows on their own.
func (r *Robot) telemetryLoop(ctx context.Context, every time.Duration) {
	log := logging.FromContext(ctx)
	log.Info("telemetry timer started", "robot_id", r.id, "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.emitRow(ctx)
		case <-ctx.Done():
			log.Info("telemetry timer stopped", "robot_id", r.id)
			return
		}
	}
}

// emitRow writes one telemetry row built from the current state.
func (r *Robot) emitRow(ctx context.Context) {
	r.mu.Lock()
	w := r.writer
	r.mu.Unlock()
	if w == nil {
		return
	}
	row := r.buildRow()
	if err := w.Write(row); err != nil {
		logging.FromContext(ctx).Error("telemetry write failed", "robot_id", r.id, "err", err)
	}
}

func (r *Robot) buildRow() telemetry.Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	moving := r.state == StateMoving
	current := idleCurrentMA
	if moving {
		current = motionCurrentMA
	}
	r.batteryMV -= batteryDrainMVPerSec * r.teleEvery.Seconds()

	motors := make(map[string]telemetry.MotorStatus, len(r.motors))
	for name, m := range r.motors {
		load := r.rand.NormFloat64() * 2
		if m.Speed != 0 {
			load += 15
		}
		motors[name] = telemetry.MotorStatus{Angle: m.Angle, Speed: m.Speed, Load: load}
	}

	sensors := make(map[string]float64, len(r.sensors))
	for name, v := range r.sensors {
		sensors[name] = v
	}

	noise := func(scale float64) float64 { return r.rand.NormFloat64() * scale }
	return telemetry.Row{
		Timestamp: r.now().UTC(),
		RobotID:   r.id,
		Hub: telemetry.HubStatus{
			Battery: telemetry.BatteryStatus{Voltage: r.batteryMV, Current: current + noise(5)},
			IMU: telemetry.IMUStatus{
				Accel:   [3]float64{noise(30), noise(30), 9810 + noise(30)},
				Gyro:    [3]float64{noise(1), noise(1), noise(1)},
				Heading: r.heading,
			},
		},
		Motors:    motors,
		Sensors:   sensors,
		Drivebase: telemetry.DrivebaseStatus{Distance: r.driveDistance, Angle: r.driveAngle},
	}
}
