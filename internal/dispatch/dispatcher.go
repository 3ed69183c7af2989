// Command dispatch to batch or sequential robot targets
package dispatch

import (
	"context"
	"fmt"
	"time"

	"hubpilot/internal/command"
	"hubpilot/internal/logging"
)

// Target is the minimal surface every robot endpoint provides. Richer
// capabilities are discovered by type assertion, so a target only implements
// what its transport can express.
type Target interface {
	Stop(ctx context.Context) error
}

// SequenceRunner accepts a whole command sequence in one submission. Targets
// implementing it get batch dispatch; pauses are stripped because the hub
// runs a batch back to back.
type SequenceRunner interface {
	RunSequence(ctx context.Context, cmds []command.Command) error
}

// DriveTurner executes the drivebase primitives one at a time.
type DriveTurner interface {
	Drive(ctx context.Context, distance, speed float64) error
	Turn(ctx context.Context, angle, speed float64) error
	TurnAndDrive(ctx context.Context, angle, distance, speed float64) error
}

// ArcRunner executes arc segments.
type ArcRunner interface {
	Arc(ctx context.Context, radius, sweep, speed float64) error
}

// MotorRunner executes attachment motor commands.
type MotorRunner interface {
	Motor(ctx context.Context, name string, angle *float64, speed float64) error
}

// ContinuousDriver supports open-ended joystick driving.
type ContinuousDriver interface {
	DriveContinuous(ctx context.Context, speed, turnRate float64) error
}

const defaultInterCommandDelay = 100 * time.Millisecond

// Dispatcher routes generated command sequences to a target.
type Dispatcher struct {
	// InterCommandDelay separates sequential commands so the drivebase
	// settles between motions. Zero means the default; negative disables.
	InterCommandDelay time.Duration
}

func (d *Dispatcher) delay() time.Duration {
	if d.InterCommandDelay == 0 {
		return defaultInterCommandDelay
	}
	if d.InterCommandDelay < 0 {
		return 0
	}
	return d.InterCommandDelay
}

// Execute runs cmds against target. SequenceRunner targets get the whole
// sequence in one batch with pauses stripped; everything else runs command
// by command with pauses honored and a settling delay in between. Commands
// the target has no capability for are skipped with a warning. The first
// failure aborts the run after a best-effort Stop.
func (d *Dispatcher) Execute(ctx context.Context, cmds []command.Command, target Target) error {
	if sr, ok := target.(SequenceRunner); ok {
		batch := make([]command.Command, 0, len(cmds))
		for _, c := range cmds {
			if c.Kind == command.KindPause {
				continue
			}
			batch = append(batch, c)
		}
		if err := sr.RunSequence(ctx, batch); err != nil {
			d.stopBestEffort(ctx, target)
			return fmt.Errorf("run sequence: %w", err)
		}
		return nil
	}
	return d.executeSequential(ctx, cmds, target)
}

func (d *Dispatcher) executeSequential(ctx context.Context, cmds []command.Command, target Target) error {
	for i, c := range cmds {
		if err := ctx.Err(); err != nil {
			d.stopBestEffort(ctx, target)
			return err
		}
		if err := d.executeOne(ctx, c, target); err != nil {
			d.stopBestEffort(ctx, target)
			return fmt.Errorf("command %d (%s): %w", i, c.Kind, err)
		}
		if i < len(cmds)-1 && c.Kind != command.KindPause {
			if err := wait(ctx, d.delay()); err != nil {
				d.stopBestEffort(ctx, target)
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) executeOne(ctx context.Context, c command.Command, target Target) error {
	log := logging.FromContext(ctx)
	switch c.Kind {
	case command.KindDrive:
		if t, ok := target.(DriveTurner); ok {
			return t.Drive(ctx, c.Distance, c.Speed)
		}
	case command.KindTurn:
		if t, ok := target.(DriveTurner); ok {
			return t.Turn(ctx, c.Angle, c.Speed)
		}
	case command.KindTurnAndDrive:
		if t, ok := target.(DriveTurner); ok {
			return t.TurnAndDrive(ctx, c.Angle, c.Distance, c.Speed)
		}
	case command.KindArc:
		if t, ok := target.(ArcRunner); ok {
			return t.Arc(ctx, c.Radius, c.SweepAngle, c.Speed)
		}
	case command.KindMotor:
		if t, ok := target.(MotorRunner); ok {
			return t.Motor(ctx, c.MotorName, c.MotorAngle, c.Speed)
		}
	case command.KindStop:
		return target.Stop(ctx)
	case command.KindPause:
		return wait(ctx, time.Duration(c.DurationMs)*time.Millisecond)
	default:
		log.Warn("unknown command kind skipped", "kind", c.Kind)
		return nil
	}
	log.Warn("target lacks capability for command, skipping", "kind", c.Kind)
	return nil
}

// stopBestEffort halts the target after a failure or cancellation. The stop
// itself must not be cut short by the cancelled context.
func (d *Dispatcher) stopBestEffort(ctx context.Context, target Target) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := target.Stop(stopCtx); err != nil {
		logging.FromContext(ctx).Warn("best-effort stop failed", "err", err)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
