package mission

import (
	"context"

	"hubpilot/internal/logging"
)

// PositionResolver turns start/end references into concrete poses.
type PositionResolver interface {
	Resolve(referenceID string) (Pose, bool)
}

// MapResolver resolves references against an in-memory named-position table.
type MapResolver map[string]Pose

// Resolve implements PositionResolver.
func (m MapResolver) Resolve(referenceID string) (Pose, bool) {
	p, ok := m[referenceID]
	return p, ok
}

// ResolvePoints returns a copy of points with start/end references replaced
// by their resolved coordinates and headings. An unknown reference degrades
// to the origin pose with a logged warning rather than failing the plan.
func ResolvePoints(ctx context.Context, resolver PositionResolver, points []Point) []Point {
	log := logging.FromContext(ctx)
	out := make([]Point, len(points))
	copy(out, points)
	for i := range out {
		p := &out[i]
		if p.Type != PointStart && p.Type != PointEnd {
			continue
		}
		pose := Pose{}
		if resolver != nil {
			if resolved, ok := resolver.Resolve(p.ReferenceID); ok {
				pose = resolved
			} else {
				log.Warn("unknown position reference, using origin",
					"reference_id", p.ReferenceID, "reference_type", p.ReferenceType)
			}
		} else {
			log.Warn("no position resolver configured, using origin",
				"reference_id", p.ReferenceID)
		}
		p.X = pose.X
		p.Y = pose.Y
		p.Heading = pose.Heading
	}
	return out
}
