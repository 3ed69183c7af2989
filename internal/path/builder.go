package path

import (
	"context"
	"math"

	"hubpilot/internal/geom"
	"hubpilot/internal/logging"
	"hubpilot/internal/mission"
)

const (
	// collinearThresholdDeg is the turn angle below which a waypoint is
	// treated as lying on a straight line. Arcs below this would have
	// near-zero radius.
	collinearThresholdDeg = 10.0
	// minLeadInMM suppresses zero-length straights in front of an arc.
	minLeadInMM = 5.0
	// legFraction caps how much of either adjacent leg an arc may consume,
	// so arcs at consecutive tight waypoints cannot overlap.
	legFraction = 0.4
	// chordFraction caps the chord against either leg length.
	chordFraction = 0.8
)

// Builder turns an ordered mission point list into path segments.
type Builder struct {
	// DefaultRadiusMM is the preferred pass-through arc radius before the
	// per-waypoint clamps apply.
	DefaultRadiusMM float64
}

// Build produces the ordered segment list for the given resolved points.
// Missions with fewer than two points yield an empty list. Degenerate
// geometry degrades to straight connections and logs a warning, never fails.
func (b *Builder) Build(ctx context.Context, points []mission.Point) []Segment {
	log := logging.FromContext(ctx)
	if len(points) < 2 {
		log.Warn("mission has fewer than 2 points, nothing to plan", "points", len(points))
		return nil
	}

	var segments []Segment
	from := points[0]
	curX, curY := from.X, from.Y

	for i := 1; i < len(points); i++ {
		pt := points[i]

		if pt.Type == mission.PointWaypoint && i+1 < len(points) {
			next := points[i+1]
			arcSegs, endX, endY, ok := b.passThroughArc(ctx, from, pt, next, curX, curY)
			if ok {
				segments = append(segments, arcSegs...)
				from = pt
				curX, curY = endX, endY
				continue
			}
			// Collinear or degenerate: fall through to a straight hop.
		}

		segments = append(segments, straightSegment(from, pt, curX, curY))
		from = pt
		curX, curY = pt.X, pt.Y
	}

	return segments
}

// passThroughArc computes the lead-in straight and arc for a waypoint with a
// following point. It reports ok=false when the turn is below the collinear
// threshold or the geometry degenerates.
func (b *Builder) passThroughArc(ctx context.Context, from, wp, next mission.Point, curX, curY float64) ([]Segment, float64, float64, bool) {
	log := logging.FromContext(ctx)

	incoming := geom.Bearing(curX, curY, wp.X, wp.Y)
	outgoing := geom.Bearing(wp.X, wp.Y, next.X, next.Y)
	signed := geom.Normalize(outgoing - incoming)
	turn := math.Abs(signed)

	if turn < collinearThresholdDeg {
		return nil, 0, 0, false
	}

	distPrev := geom.Distance(curX, curY, wp.X, wp.Y)
	distNext := geom.Distance(wp.X, wp.Y, next.X, next.Y)
	if distPrev <= 0 || distNext <= 0 {
		log.Warn("degenerate waypoint legs, connecting straight",
			"dist_prev", distPrev, "dist_next", distNext)
		return nil, 0, 0, false
	}

	// Sharper turns get smaller arcs, and an arc never consumes more than
	// 40% of either adjacent leg.
	radius := math.Min(b.DefaultRadiusMM, legFraction*math.Min(distPrev, distNext))
	radius *= math.Max(0.3, 1-turn/180)

	halfTurn := geom.Radians(turn) / 2
	chord := radius * math.Tan(halfTurn)
	chord = math.Min(chord, chordFraction*distPrev)
	chord = math.Min(chord, chordFraction*distNext)
	if chord <= 0 || math.Tan(halfTurn) == 0 {
		log.Warn("degenerate arc chord, connecting straight", "turn", turn, "chord", chord)
		return nil, 0, 0, false
	}

	inRad := geom.Radians(incoming)
	outRad := geom.Radians(outgoing)
	startX := wp.X - chord*math.Cos(inRad)
	startY := wp.Y - chord*math.Sin(inRad)
	endX := wp.X + chord*math.Cos(outRad)
	endY := wp.Y + chord*math.Sin(outRad)

	// Interior bisector, pointing at the arc center side of the corner.
	// The center sits where both tangent points are exactly one radius away:
	// chord/sin(turn/2) from the waypoint.
	bisector := geom.Normalize(incoming + signed/2 + math.Copysign(90, signed))
	centerDist := chord / math.Sin(halfTurn)
	centerX, centerY := geom.CanvasPoint(wp.X, wp.Y, bisector, centerDist)

	// The actual center-to-start distance absorbs floating point drift from
	// the chord clamps; never assume the requested radius.
	arcRadius := geom.Distance(centerX, centerY, startX, startY)
	arcStartAngle := geom.Bearing(centerX, centerY, startX, startY)
	arcEndAngle := geom.Bearing(centerX, centerY, endX, endY)
	sweep := geom.Normalize(arcEndAngle - arcStartAngle)

	var segs []Segment
	if lead := geom.Distance(curX, curY, startX, startY); lead > minLeadInMM {
		s := straightSegment(from, wp, curX, curY)
		s.EndX, s.EndY = startX, startY
		s.Length = lead
		s.StartHeading = incoming
		s.EndHeading = incoming
		segs = append(segs, s)
	}

	tangentSign := math.Copysign(90, sweep)
	segs = append(segs, Segment{
		From:          from,
		To:            wp,
		StartX:        startX,
		StartY:        startY,
		EndX:          endX,
		EndY:          endY,
		StartHeading:  geom.Normalize(arcStartAngle + tangentSign),
		EndHeading:    geom.Normalize(arcEndAngle + tangentSign),
		Type:          Arc,
		Length:        math.Abs(geom.Radians(sweep)) * arcRadius,
		ArcCenterX:    centerX,
		ArcCenterY:    centerY,
		ArcRadius:     arcRadius,
		ArcStartAngle: arcStartAngle,
		ArcEndAngle:   arcEndAngle,
	})
	return segs, endX, endY, true
}

func straightSegment(from, to mission.Point, curX, curY float64) Segment {
	bearing := geom.Bearing(curX, curY, to.X, to.Y)
	s := Segment{
		From:         from,
		To:           to,
		StartX:       curX,
		StartY:       curY,
		EndX:         to.X,
		EndY:         to.Y,
		StartHeading: bearing,
		EndHeading:   bearing,
		Type:         Straight,
		Length:       geom.Distance(curX, curY, to.X, to.Y),
	}
	if to.Type == mission.PointAction {
		// Action points arrive at their declared heading, not the bearing.
		s.StartHeading = to.Heading
		s.EndHeading = to.Heading
	}
	return s
}
