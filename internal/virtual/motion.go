package virtual

import (
	"context"
	"math"
	"time"

	"hubpilot/internal/geom"
)

// motionToken is the cooperative cancellation signal shared between a motion
// task and Stop. Stop closes done and installs a fresh token; the running
// task observes the close on its next tick and returns without snapping to
// the final pose.
type motionToken struct {
	done chan struct{}
}

func newMotionToken() *motionToken {
	return &motionToken{done: make(chan struct{})}
}

func (t *motionToken) cancel() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

// begin marks the robot as moving and returns the token motion ticks must
// observe.
func (r *Robot) begin() *motionToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateConnected {
		r.state = StateMoving
	}
	return r.token
}

func (r *Robot) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateMoving {
		r.state = StateConnected
	}
}

// runTicks drives a timed motion: step is called with the fraction of the
// motion completed at each tick (monotonically increasing, ending at exactly
// 1 so completions snap to the final pose). It returns early without the
// final snap when cancelled.
func (r *Robot) runTicks(ctx context.Context, duration time.Duration, token *motionToken, step func(frac float64)) error {
	if duration <= 0 {
		step(1)
		r.emitRow(ctx)
		return nil
	}
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	start := r.now()
	for {
		select {
		case <-token.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frac := float64(r.now().Sub(start)) / float64(duration)
			if frac >= 1 {
				step(1)
				r.emitRow(ctx)
				return nil
			}
			step(frac)
			r.emitRow(ctx)
		}
	}
}

// Drive moves straight by distance mm at speed mm/s, interpolating the pose
// along the current heading.
func (r *Robot) Drive(ctx context.Context, distance, speed float64) error {
	if speed <= 0 {
		return nil
	}
	token := r.begin()
	defer r.end()

	progressed := 0.0
	duration := time.Duration(math.Abs(distance) / speed * float64(time.Second))
	return r.runTicks(ctx, duration, token, func(frac float64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		delta := distance*frac - progressed
		progressed += delta
		dx, dy := geom.RobotStep(r.heading, delta)
		r.x += dx
		r.y += dy
		r.driveDistance += delta
	})
}

// Turn rotates in place by a relative angle in degrees at speed deg/s. With
// a configured footprint the robot pivots around its center of rotation:
// that world point is held fixed across each tick's heading advance.
func (r *Robot) Turn(ctx context.Context, angle, speed float64) error {
	if speed <= 0 {
		return nil
	}
	token := r.begin()
	defer r.end()

	progressed := 0.0
	duration := time.Duration(math.Abs(angle) / speed * float64(time.Second))
	return r.runTicks(ctx, duration, token, func(frac float64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		delta := angle*frac - progressed
		progressed += delta
		r.applyTurn(delta)
	})
}

// applyTurn advances the heading by delta degrees, relocating the robot
// center so the configured pivot point stays fixed. Callers hold r.mu.
func (r *Robot) applyTurn(delta float64) {
	pre := r.heading
	r.heading = geom.Normalize(r.heading + delta)
	r.driveAngle += delta

	if fp := r.footprint; fp != nil && (fp.PivotForwardMM != 0 || fp.PivotRightMM != 0) {
		// World position of the pivot under the pre-turn heading...
		px, py := pivotOffset(pre, fp)
		wx, wy := r.x+px, r.y+py
		// ...is held fixed while the offset rotates to the new heading.
		px, py = pivotOffset(r.heading, fp)
		r.x = wx - px
		r.y = wy - py
	}
}

// pivotOffset rotates the body-frame pivot offset into the canvas frame for
// the given robot heading.
func pivotOffset(headingDeg float64, fp *Footprint) (float64, float64) {
	fx, fy := geom.RobotStep(headingDeg, fp.PivotForwardMM)
	rx, ry := geom.RobotStep(headingDeg+90, fp.PivotRightMM)
	return fx + rx, fy + ry
}

// TurnAndDrive performs the fused primitive the drivebase accepts: a
// relative turn followed immediately by a straight drive.
func (r *Robot) TurnAndDrive(ctx context.Context, angle, distance, speed float64) error {
	if angle != 0 {
		if err := r.Turn(ctx, angle, speed); err != nil {
			return err
		}
	}
	if distance != 0 {
		return r.Drive(ctx, distance, speed)
	}
	return nil
}

// Arc follows a circular arc of the given radius through sweep degrees at
// speed mm/s. The center sits perpendicular to the current heading on the
// sweep side; the heading follows the tangent each tick.
func (r *Robot) Arc(ctx context.Context, radius, sweep, speed float64) error {
	if speed <= 0 || radius <= 0 || sweep == 0 {
		return nil
	}
	token := r.begin()
	defer r.end()

	side := math.Copysign(1, sweep)
	r.mu.Lock()
	cdx, cdy := geom.RobotStep(r.heading+side*90, radius)
	centerX, centerY := r.x+cdx, r.y+cdy
	startAngle := geom.Normalize(r.heading + side*90 + 90)
	r.mu.Unlock()

	arcLength := math.Abs(geom.Radians(sweep)) * radius
	duration := time.Duration(arcLength / speed * float64(time.Second))
	progressed := 0.0
	return r.runTicks(ctx, duration, token, func(frac float64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		swept := sweep * frac
		delta := swept - progressed
		progressed = swept

		angle := startAngle + swept
		r.x, r.y = geom.CanvasPoint(centerX, centerY, angle, radius)
		r.heading = geom.Normalize(angle + 90 + side*90)
		r.driveDistance += math.Abs(geom.Radians(delta)) * radius
		r.driveAngle += delta
	})
}

// DriveContinuous advances position and heading at constant rates until
// cancelled by Stop or the context. Used for joystick-style control.
func (r *Robot) DriveContinuous(ctx context.Context, speed, turnRate float64) error {
	token := r.begin()
	defer r.end()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	prev := r.now()
	for {
		select {
		case <-token.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(prev).Seconds()
			prev = now
			r.mu.Lock()
			r.heading = geom.Normalize(r.heading + turnRate*dt)
			dx, dy := geom.RobotStep(r.heading, speed*dt)
			r.x += dx
			r.y += dy
			r.driveDistance += speed * dt
			r.driveAngle += turnRate * dt
			r.mu.Unlock()
			r.emitRow(ctx)
		}
	}
}

// Motor runs a named attachment motor: by angle when angle is non-nil,
// continuously otherwise. Unknown motors are a no-op.
func (r *Robot) Motor(ctx context.Context, name string, angle *float64, speed float64) error {
	r.mu.Lock()
	m, ok := r.motors[name]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if angle == nil {
		r.mu.Lock()
		m.Speed = speed
		r.mu.Unlock()
		return nil
	}
	if speed <= 0 {
		return nil
	}

	token := r.begin()
	defer r.end()

	target := *angle
	progressed := 0.0
	duration := time.Duration(math.Abs(target) / speed * float64(time.Second))
	err := r.runTicks(ctx, duration, token, func(frac float64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		delta := target*frac - progressed
		progressed += delta
		m.Angle += delta
		m.Speed = math.Copysign(speed, target)
	})
	r.mu.Lock()
	m.Speed = 0
	r.mu.Unlock()
	return err
}
