package main

import (
	"os"

	"hubpilot/internal/telemetry"
)

// newTelemetryWriter sets up the telemetry sink chain based on flags and env
// vars. It returns the writer and a cleanup function to close any resources.
func newTelemetryWriter(robotID string, printOnly bool, logFile string, tui bool) (telemetry.Writer, func(), error) {
	cleanup := func() {}

	var writer telemetry.Writer
	var closers []func()
	switch {
	case tui:
		tw := telemetry.NewTUIWriter(robotID)
		writer = tw
		closers = append(closers, func() { _ = tw.Close() })
	case printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "":
		writer = telemetry.NewJSONStdoutWriter()
	default:
		gw, err := telemetry.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), "public")
		if err != nil {
			return nil, nil, err
		}
		writer = gw
	}

	if logFile != "" {
		fw, err := telemetry.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = fw.Close() })
		writer = telemetry.NewMultiWriter(writer, fw)
	}

	if len(closers) > 0 {
		cleanup = func() {
			for _, c := range closers {
				c()
			}
		}
	}
	return writer, cleanup, nil
}
