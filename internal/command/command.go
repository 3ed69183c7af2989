// Robot motion commands in the hub wire format
package command

import "encoding/json"

// Kind discriminates the command variants. The string values are the
// "action" names the hub program parses off its command stream.
type Kind string

const (
	KindDrive        Kind = "drive"
	KindTurn         Kind = "turn"
	KindTurnAndDrive Kind = "turn_and_drive"
	KindArc          Kind = "arc"
	KindMotor        Kind = "motor"
	KindStop         Kind = "stop"
	KindPause        Kind = "pause"
)

// Command is one robot motion command. Angles are degrees relative to the
// robot's heading at the moment the command is issued; SweepAngle is the
// signed total heading change of an arc. Distances are mm, speeds mm/s for
// drives and deg/s for turns.
type Command struct {
	Kind       Kind
	Distance   float64
	Angle      float64
	Radius     float64
	SweepAngle float64
	Speed      float64
	MotorName  string
	MotorAngle *float64
	DurationMs int
}

// Drive moves straight by distance at speed.
func Drive(distance, speed float64) Command {
	return Command{Kind: KindDrive, Distance: distance, Speed: speed}
}

// Turn rotates in place by a relative angle at speed.
func Turn(angle, speed float64) Command {
	return Command{Kind: KindTurn, Angle: angle, Speed: speed}
}

// TurnAndDrive fuses a relative turn with a straight drive so the drivebase
// does not pause between the two.
func TurnAndDrive(angle, distance, speed float64) Command {
	return Command{Kind: KindTurnAndDrive, Angle: angle, Distance: distance, Speed: speed}
}

// Arc follows a circular arc of the given radius through sweepAngle.
func Arc(radius, sweepAngle, speed float64) Command {
	return Command{Kind: KindArc, Radius: radius, SweepAngle: sweepAngle, Speed: speed}
}

// Motor runs a named attachment motor, by angle when angle is non-nil,
// continuously otherwise.
func Motor(name string, angle *float64, speed float64) Command {
	return Command{Kind: KindMotor, MotorName: name, MotorAngle: angle, Speed: speed}
}

// Stop halts the drivebase.
func Stop() Command {
	return Command{Kind: KindStop}
}

// Pause waits for the given duration before the next command. Only honored
// in sequential dispatch; batch targets have no native pause.
func Pause(durationMs int) Command {
	return Command{Kind: KindPause, DurationMs: durationMs}
}

// MarshalJSON emits the hub wire format, e.g.
// {"action":"drive","distance":100,"speed":200}.
func (c Command) MarshalJSON() ([]byte, error) {
	m := map[string]any{"action": string(c.Kind)}
	switch c.Kind {
	case KindDrive:
		m["distance"] = c.Distance
		m["speed"] = c.Speed
	case KindTurn:
		m["angle"] = c.Angle
		m["speed"] = c.Speed
	case KindTurnAndDrive:
		m["angle"] = c.Angle
		m["distance"] = c.Distance
		m["speed"] = c.Speed
	case KindArc:
		m["radius"] = c.Radius
		m["angle"] = c.SweepAngle
		m["speed"] = c.Speed
	case KindMotor:
		m["motor"] = c.MotorName
		if c.MotorAngle != nil {
			m["angle"] = *c.MotorAngle
		}
		m["speed"] = c.Speed
	case KindPause:
		m["duration_ms"] = c.DurationMs
	case KindStop:
		// action only
	}
	return json.Marshal(m)
}
