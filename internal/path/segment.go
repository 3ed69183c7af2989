// Path segments produced by the arc builder
package path

import "hubpilot/internal/mission"

// SegmentType discriminates straight and arc segments.
type SegmentType string

const (
	Straight SegmentType = "straight"
	Arc      SegmentType = "arc"
)

// Segment is one geometric piece of a planned path. All angles are canvas
// frame degrees, except that a segment ending at an action point carries the
// action's declared heading instead of the travel bearing.
//
// Segments are recomputed fresh from the point list on every planning
// request and never mutated in place.
type Segment struct {
	From mission.Point `json:"from"`
	To   mission.Point `json:"to"`

	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`

	StartHeading float64 `json:"start_heading"`
	EndHeading   float64 `json:"end_heading"`

	Type   SegmentType `json:"type"`
	Length float64     `json:"length"`

	// Arc geometry, set only when Type == Arc. ArcRadius is the recomputed
	// center-to-start distance, not the requested radius.
	ArcCenterX    float64 `json:"arc_center_x,omitempty"`
	ArcCenterY    float64 `json:"arc_center_y,omitempty"`
	ArcRadius     float64 `json:"arc_radius,omitempty"`
	ArcStartAngle float64 `json:"arc_start_angle,omitempty"`
	ArcEndAngle   float64 `json:"arc_end_angle,omitempty"`
}
