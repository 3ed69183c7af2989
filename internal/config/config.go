// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"hubpilot/internal/command"
	"hubpilot/internal/mission"
	"hubpilot/internal/virtual"
)

// Position is a named location on the mat that missions can reference
// instead of raw coordinates.
type Position struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

// Action maps a mission action name to an attachment motor move.
type Action struct {
	Motor string   `yaml:"motor"`
	Angle *float64 `yaml:"angle,omitempty"`
	Speed float64  `yaml:"speed"`
}

// Robot describes the physical robot the planner and simulator model.
type Robot struct {
	ID            string             `yaml:"id"`
	Footprint     virtual.Footprint  `yaml:"footprint"`
	Motors        []string           `yaml:"motors"`
	DriveSpeedMmS float64            `yaml:"drive_speed_mm_s"`
	TurnSpeedDegS float64            `yaml:"turn_speed_deg_s"`
	Sensors       map[string]float64 `yaml:"sensors"`
}

// Planner holds path construction parameters.
type Planner struct {
	DefaultArcRadiusMM float64 `yaml:"default_arc_radius_mm"`
}

// Telemetry holds telemetry emission parameters.
type Telemetry struct {
	IntervalMs int `yaml:"interval_ms"`
}

// HubConfig is the root configuration for the robot, planner, named
// positions, and mission actions.
type HubConfig struct {
	Robot     Robot               `yaml:"robot"`
	Planner   Planner             `yaml:"planner"`
	Telemetry Telemetry           `yaml:"telemetry"`
	Positions map[string]Position `yaml:"positions"`
	Actions   map[string]Action   `yaml:"actions"`
}

const (
	defaultDriveSpeedMmS      = 200
	defaultTurnSpeedDegS      = 90
	defaultArcRadiusMM        = 50
	defaultTelemetryIntervalMs = 100
)

// Load loads YAML config and validates it against a CUE schema
func Load(configPath, cueSchemaPath string) (*HubConfig, error) {
	// Validate with CUE first
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg HubConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	slog.Info("loaded configuration",
		"path", configPath,
		"robot_id", cfg.Robot.ID,
		"positions", len(cfg.Positions),
		"actions", len(cfg.Actions))

	return &cfg, nil
}

func (c *HubConfig) applyDefaults() {
	if c.Robot.ID == "" {
		c.Robot.ID = "virtual-hub"
	}
	if c.Robot.DriveSpeedMmS <= 0 {
		c.Robot.DriveSpeedMmS = defaultDriveSpeedMmS
	}
	if c.Robot.TurnSpeedDegS <= 0 {
		c.Robot.TurnSpeedDegS = defaultTurnSpeedDegS
	}
	if c.Planner.DefaultArcRadiusMM <= 0 {
		c.Planner.DefaultArcRadiusMM = defaultArcRadiusMM
	}
	if c.Telemetry.IntervalMs <= 0 {
		c.Telemetry.IntervalMs = defaultTelemetryIntervalMs
	}
}

// TelemetryInterval returns the configured telemetry period.
func (c *HubConfig) TelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.IntervalMs) * time.Millisecond
}

// Resolver builds the position resolver missions use for named references.
func (c *HubConfig) Resolver() mission.MapResolver {
	r := make(mission.MapResolver, len(c.Positions))
	for name, p := range c.Positions {
		r[name] = mission.Pose{X: p.X, Y: p.Y, Heading: p.Heading}
	}
	return r
}

// MotorActions converts the action table into the command generator's form.
func (c *HubConfig) MotorActions() map[string]command.MotorAction {
	out := make(map[string]command.MotorAction, len(c.Actions))
	for name, a := range c.Actions {
		out[name] = command.MotorAction{Motor: a.Motor, Angle: a.Angle, Speed: a.Speed}
	}
	return out
}

// Validate checks cross-field constraints the CUE schema cannot express.
func (c *HubConfig) Validate() error {
	motors := make(map[string]bool, len(c.Robot.Motors))
	for _, m := range c.Robot.Motors {
		motors[m] = true
	}
	for name, a := range c.Actions {
		if !motors[a.Motor] {
			return fmt.Errorf("action %q references unknown motor %q", name, a.Motor)
		}
		if a.Speed <= 0 {
			return fmt.Errorf("action %q: speed must be positive", name)
		}
	}
	return nil
}
