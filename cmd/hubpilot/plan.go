package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"hubpilot/internal/command"
	"hubpilot/internal/config"
	"hubpilot/internal/dispatch"
	"hubpilot/internal/logging"
	"hubpilot/internal/mission"
	"hubpilot/internal/path"
)

var (
	planConfigPath  string
	planSchemaPath  string
	planMissionPath string
	planWire        bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a mission and print the path and commands",
	Long:  "plan resolves a mission's points, builds the arc-blended path, and prints the segments and hub commands. With --wire it prints one wire-format command per line, ready to pipe to a hub bridge.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(planConfigPath, planSchemaPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		m, err := mission.LoadFile(planMissionPath)
		if err != nil {
			return err
		}

		// STDOUT carries the plan, so logs go to STDERR.
		ctx := logging.NewContext(context.Background(), logging.NewStderr())
		segments, commands := planMission(ctx, cfg, m)

		if planWire {
			target := dispatch.NewStreamTarget(os.Stdout)
			return target.RunSequence(ctx, commands)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Mission  string            `json:"mission"`
			Segments []path.Segment    `json:"segments"`
			Commands []command.Command `json:"commands"`
		}{m.Name, segments, commands})
	},
}

// planMission runs the resolve, build, generate pipeline.
func planMission(ctx context.Context, cfg *config.HubConfig, m *mission.Mission) ([]path.Segment, []command.Command) {
	points := mission.ResolvePoints(ctx, cfg.Resolver(), m.Points)
	builder := &path.Builder{DefaultRadiusMM: cfg.Planner.DefaultArcRadiusMM}
	segments := builder.Build(ctx, points)
	gen := &command.Generator{
		DriveSpeed: cfg.Robot.DriveSpeedMmS,
		TurnSpeed:  cfg.Robot.TurnSpeedDegS,
		Actions:    cfg.MotorActions(),
	}
	return segments, gen.Generate(ctx, segments)
}

func init() {
	planCmd.Flags().StringVar(&planConfigPath, "config", "config/robot.yaml", "Path to robot configuration YAML")
	planCmd.Flags().StringVar(&planSchemaPath, "schema", "schemas/robot.cue", "Path to CUE schema file")
	planCmd.Flags().StringVar(&planMissionPath, "mission", "", "Path to mission file (JSON or YAML)")
	planCmd.Flags().BoolVar(&planWire, "wire", false, "Print wire-format command lines instead of the full plan")
	planCmd.MarkFlagRequired("mission")
}
