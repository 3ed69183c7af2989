// Mission point types consumed by the path planner
package mission

// PointType discriminates the kinds of points a mission sequence may contain.
type PointType string

const (
	// PointWaypoint is a pass-through point; its heading is derived from
	// the path geometry.
	PointWaypoint PointType = "waypoint"
	// PointAction carries a literal pose plus an optional motor action and
	// pause to perform on arrival.
	PointAction PointType = "action"
	// PointStart references a named position resolved at planning time.
	PointStart PointType = "start"
	// PointEnd references a named position resolved at planning time.
	PointEnd PointType = "end"
)

// Point is one entry of a mission's ordered point sequence. Which fields are
// meaningful depends on Type: waypoints carry only X/Y, action points add a
// declared heading, start/end points carry a reference instead of literal
// coordinates until resolved.
type Point struct {
	Type PointType `json:"type" yaml:"type"`

	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`

	// Heading is the declared robot-frame heading for action points and
	// resolved start/end points.
	Heading float64 `json:"heading,omitempty" yaml:"heading,omitempty"`

	ActionName       string  `json:"action_name,omitempty" yaml:"action_name,omitempty"`
	PauseDurationSec float64 `json:"pause_duration_sec,omitempty" yaml:"pause_duration_sec,omitempty"`

	ReferenceType string `json:"reference_type,omitempty" yaml:"reference_type,omitempty"`
	ReferenceID   string `json:"reference_id,omitempty" yaml:"reference_id,omitempty"`
}

// Mission is an ordered point sequence. Validation that it begins with a
// start point and ends with an end point happens upstream; the planner
// tolerates violations by degrading to straight connections.
type Mission struct {
	Name   string  `json:"name" yaml:"name"`
	Points []Point `json:"points" yaml:"points"`
}

// Pose is a concrete position and robot-frame heading.
type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}
