package command

import (
	"context"
	"math"

	"hubpilot/internal/geom"
	"hubpilot/internal/logging"
	"hubpilot/internal/mission"
	"hubpilot/internal/path"
)

// minDriveMM is the straight distance below which no drive is emitted.
const minDriveMM = 1.0

// MotorAction is a configured attachment-motor move bound to an action
// point's action name.
type MotorAction struct {
	Motor string   `yaml:"motor" json:"motor"`
	Angle *float64 `yaml:"angle,omitempty" json:"angle,omitempty"`
	Speed float64  `yaml:"speed" json:"speed"`
}

// Generator turns path segments into robot commands. Path geometry is in
// the canvas frame; every emitted command is in the robot frame.
type Generator struct {
	DriveSpeed float64 // mm/s for drives and arcs
	TurnSpeed  float64 // deg/s for in-place turns
	Actions    map[string]MotorAction
}

// Generate produces the ordered command list for the given segments. The
// running robot heading starts at 0° and is threaded through each segment;
// the list always terminates with a stop command.
func (g *Generator) Generate(ctx context.Context, segments []path.Segment) []Command {
	var out []Command
	heading := 0.0
	for _, seg := range segments {
		var cmds []Command
		cmds, heading = g.segmentCommands(ctx, seg, heading)
		out = append(out, cmds...)
	}
	return append(out, Stop())
}

// segmentCommands emits the commands for one segment and returns the robot
// heading after they complete.
func (g *Generator) segmentCommands(ctx context.Context, seg path.Segment, heading float64) ([]Command, float64) {
	var cmds []Command

	switch seg.Type {
	case path.Arc:
		sweep := geom.Normalize(seg.ArcEndAngle - seg.ArcStartAngle)
		tangent := geom.CanvasToRobot(seg.ArcStartAngle + math.Copysign(90, sweep))
		align := geom.Normalize(tangent - heading)
		// Never threshold the alignment turn: a small uncorrected heading
		// error compounds visibly over an arc.
		cmds = append(cmds,
			Turn(align, g.TurnSpeed),
			Arc(seg.ArcRadius, sweep, g.DriveSpeed),
		)
		heading = geom.Normalize(tangent + sweep)

	case path.Straight:
		dist := geom.Distance(seg.StartX, seg.StartY, seg.EndX, seg.EndY)
		if dist > minDriveMM {
			robotHeading := geom.CanvasToRobot(geom.Bearing(seg.StartX, seg.StartY, seg.EndX, seg.EndY))
			turn := geom.Normalize(robotHeading - heading)
			cmds = append(cmds, TurnAndDrive(turn, dist, g.DriveSpeed))
			heading = robotHeading
		}
	}

	if seg.To.Type == mission.PointAction {
		cmds = append(cmds, g.actionArrival(ctx, seg.To, &heading)...)
	}
	return cmds, heading
}

// actionArrival rotates to the action's declared absolute heading, then runs
// the configured motor action and pause, if any. The heading correction is
// never thresholded: action execution requires a precise final heading.
func (g *Generator) actionArrival(ctx context.Context, pt mission.Point, heading *float64) []Command {
	log := logging.FromContext(ctx)

	turn := geom.Normalize(pt.Heading - *heading)
	cmds := []Command{Turn(turn, g.TurnSpeed)}
	*heading = geom.Normalize(pt.Heading)

	if pt.ActionName != "" {
		if action, ok := g.Actions[pt.ActionName]; ok {
			cmds = append(cmds, Motor(action.Motor, action.Angle, action.Speed))
		} else {
			log.Warn("no motor action configured, skipping", "action", pt.ActionName)
		}
	}
	if pt.PauseDurationSec > 0 {
		cmds = append(cmds, Pause(int(pt.PauseDurationSec*1000)))
	}
	return cmds
}
