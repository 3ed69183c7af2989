package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// GreptimeDBWriter writes telemetry to GreptimeDB via the ingester client.
// Motor and sensor maps are stored as JSON strings; the scalar hub and
// drivebase readings get their own columns for dashboard queries.
type GreptimeDBWriter struct {
	client greptime.Client
	db     string
	table  string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer and auto-creates the
// table if needed.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + TableName + ` (
  robot_id STRING TAG,
  battery_voltage DOUBLE,
  battery_current DOUBLE,
  heading DOUBLE,
  drive_distance DOUBLE,
  drive_angle DOUBLE,
  motors STRING,
  sensors STRING,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client: client,
		db:     database,
		table:  TableName,
	}, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row Row) error {
	return w.WriteBatch([]Row{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.table)
	tbl.AddTagColumn("robot_id", types.StringType, 0)
	tbl.AddFieldColumn("battery_voltage", types.Float64Type)
	tbl.AddFieldColumn("battery_current", types.Float64Type)
	tbl.AddFieldColumn("heading", types.Float64Type)
	tbl.AddFieldColumn("drive_distance", types.Float64Type)
	tbl.AddFieldColumn("drive_angle", types.Float64Type)
	tbl.AddFieldColumn("motors", types.StringType)
	tbl.AddFieldColumn("sensors", types.StringType)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, r := range rows {
		motors, _ := json.Marshal(r.Motors)
		sensors, _ := json.Marshal(r.Sensors)
		tbl.AppendTagValue("robot_id", r.RobotID)
		tbl.AppendFieldValue("battery_voltage", r.Hub.Battery.Voltage)
		tbl.AppendFieldValue("battery_current", r.Hub.Battery.Current)
		tbl.AppendFieldValue("heading", r.Hub.IMU.Heading)
		tbl.AppendFieldValue("drive_distance", r.Drivebase.Distance)
		tbl.AppendFieldValue("drive_angle", r.Drivebase.Angle)
		tbl.AppendFieldValue("motors", string(motors))
		tbl.AppendFieldValue("sensors", string(sensors))
		tbl.AppendTimeIndex(r.Timestamp)
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		slog.Error("greptime write failed", "err", err)
		return err
	}
	return nil
}
