package main

import (
	"github.com/spf13/cobra"

	"hubpilot/internal/telemetry"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayTUI       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded telemetry log",
	Long:  "replay feeds telemetry rows from a JSONL log back into GreptimeDB, STDOUT, or the terminal UI at their original pacing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		writer, cleanup, err := newTelemetryWriter("replay", replayPrintOnly, "", replayTUI)
		if err != nil {
			return err
		}
		defer cleanup()
		return telemetry.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	replayCmd.Flags().BoolVar(&replayTUI, "tui", false, "Render the replay in a terminal UI")
	replayCmd.MarkFlagRequired("input")
}
