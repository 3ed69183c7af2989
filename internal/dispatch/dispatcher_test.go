package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hubpilot/internal/command"
)

// call records one invocation on a fake target.
type call struct {
	kind command.Kind
	args []float64
}

// fullTarget implements every sequential capability.
type fullTarget struct {
	calls    []call
	stops    int
	driveErr error
}

func (t *fullTarget) Stop(ctx context.Context) error {
	t.stops++
	return nil
}

func (t *fullTarget) Drive(ctx context.Context, distance, speed float64) error {
	t.calls = append(t.calls, call{command.KindDrive, []float64{distance, speed}})
	return t.driveErr
}

func (t *fullTarget) Turn(ctx context.Context, angle, speed float64) error {
	t.calls = append(t.calls, call{command.KindTurn, []float64{angle, speed}})
	return nil
}

func (t *fullTarget) TurnAndDrive(ctx context.Context, angle, distance, speed float64) error {
	t.calls = append(t.calls, call{command.KindTurnAndDrive, []float64{angle, distance, speed}})
	return nil
}

func (t *fullTarget) Arc(ctx context.Context, radius, sweep, speed float64) error {
	t.calls = append(t.calls, call{command.KindArc, []float64{radius, sweep, speed}})
	return nil
}

func (t *fullTarget) Motor(ctx context.Context, name string, angle *float64, speed float64) error {
	t.calls = append(t.calls, call{kind: command.KindMotor})
	return nil
}

// batchTarget only accepts whole sequences.
type batchTarget struct {
	batches [][]command.Command
	stops   int
}

func (t *batchTarget) Stop(ctx context.Context) error { t.stops++; return nil }

func (t *batchTarget) RunSequence(ctx context.Context, cmds []command.Command) error {
	t.batches = append(t.batches, cmds)
	return nil
}

// stopOnlyTarget has no motion capabilities at all.
type stopOnlyTarget struct{ stops int }

func (t *stopOnlyTarget) Stop(ctx context.Context) error { t.stops++; return nil }

func noDelay() *Dispatcher { return &Dispatcher{InterCommandDelay: -1} }

func TestExecute_BatchStripsPauses(t *testing.T) {
	target := &batchTarget{}
	cmds := []command.Command{
		command.TurnAndDrive(90, 100, 200),
		command.Pause(500),
		command.Arc(20, 90, 200),
		command.Stop(),
	}
	if err := noDelay().Execute(context.Background(), cmds, target); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(target.batches) != 1 {
		t.Fatalf("submitted %d batches, want 1", len(target.batches))
	}
	batch := target.batches[0]
	if len(batch) != 3 {
		t.Fatalf("batch has %d commands, want 3 with the pause stripped", len(batch))
	}
	for _, c := range batch {
		if c.Kind == command.KindPause {
			t.Errorf("pause survived into batch: %+v", c)
		}
	}
}

func TestExecute_SequentialRunsEachCommand(t *testing.T) {
	target := &fullTarget{}
	cmds := []command.Command{
		command.TurnAndDrive(90, 100, 200),
		command.Arc(20, 90, 200),
		command.Turn(-45, 120),
		command.Stop(),
	}
	if err := noDelay().Execute(context.Background(), cmds, target); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []command.Kind{command.KindTurnAndDrive, command.KindArc, command.KindTurn}
	if len(target.calls) != len(want) {
		t.Fatalf("made %d calls, want %d", len(target.calls), len(want))
	}
	for i, k := range want {
		if target.calls[i].kind != k {
			t.Errorf("call %d = %s, want %s", i, target.calls[i].kind, k)
		}
	}
	if target.stops != 1 {
		t.Errorf("stop called %d times, want 1 (from the Stop command)", target.stops)
	}
}

func TestExecute_SequentialHonorsPause(t *testing.T) {
	target := &fullTarget{}
	cmds := []command.Command{
		command.Drive(10, 100),
		command.Pause(60),
		command.Drive(10, 100),
	}
	start := time.Now()
	if err := noDelay().Execute(context.Background(), cmds, target); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("run took %v, want at least the 60ms pause", elapsed)
	}
	if len(target.calls) != 2 {
		t.Errorf("made %d drive calls, want 2", len(target.calls))
	}
}

func TestExecute_SkipsMissingCapability(t *testing.T) {
	target := &stopOnlyTarget{}
	cmds := []command.Command{
		command.Drive(10, 100),
		command.Arc(20, 90, 200),
		command.Stop(),
	}
	if err := noDelay().Execute(context.Background(), cmds, target); err != nil {
		t.Fatalf("Execute should skip unsupported commands, got %v", err)
	}
	if target.stops != 1 {
		t.Errorf("stop called %d times, want 1", target.stops)
	}
}

func TestExecute_FailurePropagatesAndStops(t *testing.T) {
	target := &fullTarget{driveErr: errors.New("motor stalled")}
	cmds := []command.Command{
		command.Drive(10, 100),
		command.Turn(90, 120),
	}
	err := noDelay().Execute(context.Background(), cmds, target)
	if err == nil || !errors.Is(err, target.driveErr) {
		t.Fatalf("Execute error = %v, want wrapped drive error", err)
	}
	if len(target.calls) != 1 {
		t.Errorf("run continued past the failure: %d calls", len(target.calls))
	}
	if target.stops != 1 {
		t.Errorf("best-effort stop called %d times, want 1", target.stops)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	target := &fullTarget{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := noDelay().Execute(ctx, []command.Command{command.Drive(10, 100)}, target)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if len(target.calls) != 0 {
		t.Errorf("commands ran under a cancelled context: %d calls", len(target.calls))
	}
}

func TestStreamTarget_WritesWireFormatLines(t *testing.T) {
	var buf bytes.Buffer
	target := NewStreamTarget(&buf)
	cmds := []command.Command{
		command.TurnAndDrive(90, 100, 200),
		command.Arc(20, 90, 200),
		command.Stop(),
	}
	if err := (&Dispatcher{}).Execute(context.Background(), cmds, target); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var lines []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 3 {
		t.Fatalf("wrote %d lines, want 3", len(lines))
	}
	if lines[0]["action"] != "turn_and_drive" || lines[0]["angle"].(float64) != 90 {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["action"] != "arc" || lines[1]["angle"].(float64) != 90 || lines[1]["radius"].(float64) != 20 {
		t.Errorf("second line = %v", lines[1])
	}
	if lines[2]["action"] != "stop" {
		t.Errorf("third line = %v", lines[2])
	}
}

func TestStreamTarget_StopWritesStopCommand(t *testing.T) {
	var buf bytes.Buffer
	target := NewStreamTarget(&buf)
	if err := target.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["action"] != "stop" {
		t.Errorf("stop line = %v", m)
	}
}
