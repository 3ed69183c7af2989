package telemetry

import (
	"testing"
	"time"
)

// mockWriter collects rows for validation.
type mockWriter struct {
	rows    []Row
	batches int
}

func (w *mockWriter) Write(row Row) error {
	w.rows = append(w.rows, row)
	return nil
}

// mockBatchWriter also implements BatchWriter.
type mockBatchWriter struct {
	mockWriter
}

func (w *mockBatchWriter) WriteBatch(rows []Row) error {
	w.batches++
	w.rows = append(w.rows, rows...)
	return nil
}

func sampleRow(heading float64) Row {
	return Row{
		Timestamp: time.Now().UTC(),
		RobotID:   "virtual-1",
		Hub: HubStatus{
			Battery: BatteryStatus{Voltage: 8100, Current: 120},
			IMU:     IMUStatus{Heading: heading},
		},
		Drivebase: DrivebaseStatus{Distance: 42, Angle: heading},
	}
}

func TestMultiWriter_FanOut(t *testing.T) {
	plain := &mockWriter{}
	batch := &mockBatchWriter{}
	mw := NewMultiWriter(plain, batch)

	rows := []Row{sampleRow(0), sampleRow(90)}
	if err := mw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if len(plain.rows) != 2 {
		t.Errorf("plain writer got %d rows, want 2", len(plain.rows))
	}
	if batch.batches != 1 || len(batch.rows) != 2 {
		t.Errorf("batch writer got %d batches / %d rows, want 1 / 2", batch.batches, len(batch.rows))
	}
}

func TestMultiWriter_SingleWrite(t *testing.T) {
	plain := &mockWriter{}
	mw := NewMultiWriter(plain)
	if err := mw.Write(sampleRow(45)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(plain.rows) != 1 || plain.rows[0].Hub.IMU.Heading != 45 {
		t.Errorf("unexpected rows: %+v", plain.rows)
	}
}
