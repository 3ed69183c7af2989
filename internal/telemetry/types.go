// Telemetry rows emitted by real and virtual robots
package telemetry

import (
	"os"
	"time"
)

// Row is one telemetry report. The shape is field-for-field what a real hub
// emits over its pilot stream; downstream consumers pattern-match on it
// (e.g. deriving robot pose from drivebase distance/angle deltas), so it
// must stay stable.
type Row struct {
	Timestamp time.Time              `json:"ts"`
	RobotID   string                 `json:"robot_id"`
	Hub       HubStatus              `json:"hub"`
	Motors    map[string]MotorStatus `json:"motors,omitempty"`
	Sensors   map[string]float64     `json:"sensors,omitempty"`
	Drivebase DrivebaseStatus        `json:"drivebase"`
}

// HubStatus carries battery and IMU readings.
type HubStatus struct {
	Battery BatteryStatus `json:"battery"`
	IMU     IMUStatus     `json:"imu"`
}

// BatteryStatus is the hub battery state.
type BatteryStatus struct {
	Voltage float64 `json:"voltage"` // mV
	Current float64 `json:"current"` // mA
}

// IMUStatus carries the inertial readings. Heading is robot frame degrees.
type IMUStatus struct {
	Accel   [3]float64 `json:"accel"`
	Gyro    [3]float64 `json:"gyro"`
	Heading float64    `json:"heading"`
}

// MotorStatus is one attachment motor's state.
type MotorStatus struct {
	Angle float64 `json:"angle"`
	Speed float64 `json:"speed"`
	Load  float64 `json:"load"`
}

// DrivebaseStatus is the accumulated drivebase odometry.
type DrivebaseStatus struct {
	Distance float64 `json:"distance"` // mm driven since last reset
	Angle    float64 `json:"angle"`    // degrees turned since last reset
}

// TableName holds the table used when writing to GreptimeDB. It defaults to
// "robot_telemetry" but can be overridden via the GREPTIMEDB_TABLE
// environment variable.
var TableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "robot_telemetry"
}()
