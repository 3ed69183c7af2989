package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hubpilot/internal/config"
	"hubpilot/internal/logging"
	"hubpilot/internal/server"
	"hubpilot/internal/telemetry"
	"hubpilot/internal/virtual"
)

var (
	serveConfigPath string
	serveSchemaPath string
	serveAddr       string
	serveLogFile    string
	servePrintOnly  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and live telemetry socket",
	Long:  "serve starts the HTTP/WebSocket server the browser dashboard talks to, backed by the virtual robot simulator.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		if err := godotenv.Load(); err != nil {
			log.Info("no .env file found, using process environment")
		}

		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		writer, cleanup, err := newTelemetryWriter(cfg.Robot.ID, servePrintOnly, serveLogFile, false)
		if err != nil {
			return err
		}
		defer cleanup()

		robot := virtual.New(virtual.Options{
			RobotID:           cfg.Robot.ID,
			TelemetryInterval: cfg.TelemetryInterval(),
			Footprint:         &cfg.Robot.Footprint,
			Motors:            cfg.Robot.Motors,
			Sensors:           cfg.Robot.Sensors,
		})
		srv := server.New(cfg, robot)
		go srv.Manager().Start(ctx)

		// Rows go to the dashboard sockets and to the configured sink.
		robotWriter := telemetry.NewMultiWriter(server.NewBroadcastWriter(srv.Manager()), writer)
		robot.SetWriter(robotWriter)
		if err := robot.Connect(ctx); err != nil {
			return err
		}
		defer robot.Disconnect()

		app := srv.App(ctx)
		go func() {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			<-sigs
			cancel()
			_ = app.Shutdown()
		}()

		log.Info("dashboard server listening", "addr", serveAddr)
		return app.Listen(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/robot.yaml", "Path to robot configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/robot.cue", "Path to CUE schema file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":3000", "Listen address")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Path to export telemetry log (JSONL)")
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
}
