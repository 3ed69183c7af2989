package mission

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMission(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeMission(t, "m.json", `{
  "name": "delivery",
  "points": [
    {"type": "start", "reference_type": "position", "reference_id": "home"},
    {"type": "waypoint", "x": 100, "y": 0},
    {"type": "end", "reference_type": "position", "reference_id": "dock"}
  ]
}`)
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if m.Name != "delivery" || len(m.Points) != 3 {
		t.Errorf("unexpected mission: %+v", m)
	}
	if m.Points[0].Type != PointStart || m.Points[0].ReferenceID != "home" {
		t.Errorf("unexpected start point: %+v", m.Points[0])
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeMission(t, "m.yaml", `
name: patrol
points:
  - type: waypoint
    x: 10
    y: 20
  - type: action
    x: 30
    y: 40
    heading: 90
    action_name: grab
`)
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(m.Points) != 2 || m.Points[1].ActionName != "grab" {
		t.Errorf("unexpected mission: %+v", m)
	}
}

func TestLoadFile_EmptyMission(t *testing.T) {
	path := writeMission(t, "m.json", `{"name": "empty", "points": []}`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted a mission with no points")
	}
}
