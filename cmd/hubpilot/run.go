package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hubpilot/internal/config"
	"hubpilot/internal/dispatch"
	"hubpilot/internal/logging"
	"hubpilot/internal/mission"
	"hubpilot/internal/virtual"
)

var (
	runConfigPath  string
	runSchemaPath  string
	runMissionPath string
	runPrintOnly   bool
	runLogFile     string
	runTUI         bool
	runTick        time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a mission on the virtual robot",
	Long:  "run plans a mission and executes it on the virtual robot simulator, emitting telemetry to the configured sinks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		m, err := mission.LoadFile(runMissionPath)
		if err != nil {
			return err
		}

		writer, cleanup, err := newTelemetryWriter(cfg.Robot.ID, runPrintOnly, runLogFile, runTUI)
		if err != nil {
			return err
		}
		defer cleanup()

		log := logging.NewStderr()
		if runTUI {
			// The TUI owns the terminal.
			log = logging.New()
		}
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		robot := virtual.New(virtual.Options{
			RobotID:           cfg.Robot.ID,
			TickInterval:      runTick,
			TelemetryInterval: cfg.TelemetryInterval(),
			Footprint:         &cfg.Robot.Footprint,
			Motors:            cfg.Robot.Motors,
			Sensors:           cfg.Robot.Sensors,
			Writer:            writer,
		})
		if err := robot.Connect(ctx); err != nil {
			return err
		}
		defer robot.Disconnect()

		_, commands := planMission(ctx, cfg, m)
		log.Info("mission planned", "mission", m.Name, "commands", len(commands))

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			_ = robot.Stop(ctx)
			cancel()
		}()

		dispatcher := &dispatch.Dispatcher{}
		if err := dispatcher.Execute(ctx, commands, robot); err != nil {
			return err
		}
		log.Info("mission finished", "mission", m.Name)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/robot.yaml", "Path to robot configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/robot.cue", "Path to CUE schema file")
	runCmd.Flags().StringVar(&runMissionPath, "mission", "", "Path to mission file (JSON or YAML)")
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export telemetry log (JSONL)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Render live telemetry in a terminal UI")
	runCmd.Flags().DurationVar(&runTick, "tick", 0, "Simulation tick interval (default 50ms)")
	runCmd.MarkFlagRequired("mission")
}
