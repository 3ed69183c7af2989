package server

import (
	"encoding/json"
	"time"

	"hubpilot/internal/telemetry"
)

// BroadcastWriter is a telemetry sink that streams rows to every connected
// dashboard client as "telemetry" messages.
type BroadcastWriter struct {
	manager *ClientManager
}

func NewBroadcastWriter(manager *ClientManager) *BroadcastWriter {
	return &BroadcastWriter{manager: manager}
}

// Write broadcasts one row.
func (w *BroadcastWriter) Write(row telemetry.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	w.manager.Broadcast(Message{
		Type:      "telemetry",
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}
