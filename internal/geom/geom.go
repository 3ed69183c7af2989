// Planar geometry helpers shared by the path builder and command generator
package geom

import "math"

// Two heading conventions coexist in this codebase and must never be mixed
// un-converted:
//
//	canvas frame: 0°=East, 90°=South, Y grows downward (all path geometry)
//	robot frame:  0°=North, clockwise positive (all motion commands)

// Normalize maps any angle in degrees to the range (-180, 180].
func Normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// CanvasToRobot converts a canvas-frame heading to the robot frame.
func CanvasToRobot(canvasDeg float64) float64 {
	return Normalize(canvasDeg + 90)
}

// RobotToCanvas converts a robot-frame heading to the canvas frame.
func RobotToCanvas(robotDeg float64) float64 {
	return Normalize(robotDeg - 90)
}

// Bearing returns the canvas-frame direction from (x1,y1) to (x2,y2) in degrees.
func Bearing(x1, y1, x2, y2 float64) float64 {
	return math.Atan2(y2-y1, x2-x1) * 180 / math.Pi
}

// Distance returns the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RobotStep returns the position delta for moving dist along a robot-frame
// heading. Heading 0 moves up the canvas, so Y decreases.
func RobotStep(headingDeg, dist float64) (dx, dy float64) {
	r := Radians(headingDeg)
	return dist * math.Sin(r), -dist * math.Cos(r)
}

// CanvasPoint returns the point at the given canvas-frame angle and radius
// from a center.
func CanvasPoint(cx, cy, angleDeg, radius float64) (x, y float64) {
	r := Radians(angleDeg)
	return cx + radius*math.Cos(r), cy + radius*math.Sin(r)
}
