package telemetry

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileWriter_RoundTripThroughReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := []Row{sampleRow(0), sampleRow(90), sampleRow(180)}
	for i := range rows {
		rows[i].Timestamp = base.Add(time.Duration(i) * 100 * time.Millisecond)
	}
	if err := fw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sink := &mockWriter{}
	if err := ReplayLogFile(path, sink, 0); err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if len(sink.rows) != 3 {
		t.Fatalf("replayed %d rows, want 3", len(sink.rows))
	}
	if sink.rows[2].Hub.IMU.Heading != 180 {
		t.Errorf("row order or content lost: %+v", sink.rows[2])
	}
	if !sink.rows[1].Timestamp.Equal(base.Add(100 * time.Millisecond)) {
		t.Errorf("timestamp not preserved: %v", sink.rows[1].Timestamp)
	}
}
