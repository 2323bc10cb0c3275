package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := s.Snapshot()
	if cfg.TemperatureConstant != DefaultTemperatureConstant {
		t.Errorf("TemperatureConstant: got %v, want %v", cfg.TemperatureConstant, DefaultTemperatureConstant)
	}
	if cfg.PowerRequired != DefaultPowerRequired {
		t.Errorf("PowerRequired: got %v, want %v", cfg.PowerRequired, DefaultPowerRequired)
	}
	if len(cfg.Radiators) != 0 {
		t.Errorf("Radiators: got %d, want 0", len(cfg.Radiators))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
	if !strings.Contains(string(data), "temperature_constant: 4") {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `temperature_constant: 3.5
power_required: 1500
radiators:
  living_room:
    power: 1800
    included: true
  bathroom:
    power: 600
    included: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := s.Snapshot()
	if cfg.TemperatureConstant != 3.5 {
		t.Errorf("TemperatureConstant: got %v", cfg.TemperatureConstant)
	}
	if cfg.PowerRequired != 1500 {
		t.Errorf("PowerRequired: got %v", cfg.PowerRequired)
	}
	if got := cfg.Radiators["living_room"]; got.Power != 1800 || !got.Included {
		t.Errorf("living_room: got %+v", got)
	}
	if got := cfg.Radiators["bathroom"]; got.Power != 600 || got.Included {
		t.Errorf("bathroom: got %+v", got)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("radiators:\n  kitchen: {}\n  office:\n    included: false\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.TemperatureConstant != DefaultTemperatureConstant || cfg.PowerRequired != DefaultPowerRequired {
		t.Errorf("top-level defaults not applied: %+v", cfg)
	}
	if got := cfg.Radiators["kitchen"]; got != DefaultRadiator() {
		t.Errorf("kitchen: got %+v, want defaults", got)
	}
	if got := cfg.Radiators["office"]; got.Power != DefaultRadiatorPower || got.Included {
		t.Errorf("office: got %+v", got)
	}
}

func TestParseBareRadiatorEntryTakesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("radiators:\n  kitchen:\n  hall: ~\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, name := range []string{"kitchen", "hall"} {
		got, ok := cfg.Radiators[name]
		if !ok {
			t.Errorf("%s: missing entry", name)
			continue
		}
		if got != DefaultRadiator() {
			t.Errorf("%s: got %+v, want defaults", name, got)
		}
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Radiators == nil {
		t.Error("Radiators map should be initialized")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("radiators: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestObservePersistsNewRadiator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Observe("hallway") {
		t.Error("first Observe should create an entry")
	}
	if s.Observe("hallway") {
		t.Error("second Observe should not create an entry")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reloaded.Snapshot().Radiators["hallway"]
	if !ok {
		t.Fatal("hallway not persisted")
	}
	if got != DefaultRadiator() {
		t.Errorf("hallway: got %+v, want defaults", got)
	}
}

func TestObserveWriteFailureKeepsMemoryState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "config.yaml")
	s := NewStore(path, Default())

	if !s.Observe("loft") {
		t.Error("expected entry to be created")
	}
	if _, ok := s.Snapshot().Radiators["loft"]; !ok {
		t.Error("in-memory entry should survive a failed write")
	}
	if err := s.Save(); err == nil {
		t.Error("expected Save to fail for missing directory")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore("", Default())
	s.Observe("a")

	snap := s.Snapshot()
	snap.Radiators["a"] = Radiator{Power: 1}
	snap.Radiators["b"] = Radiator{}

	cfg := s.Snapshot()
	if cfg.Radiators["a"].Power != DefaultRadiatorPower {
		t.Error("store mutated through snapshot")
	}
	if _, ok := cfg.Radiators["b"]; ok {
		t.Error("store mutated through snapshot")
	}
}

func TestTemperatureConstant(t *testing.T) {
	cfg := Default()
	cfg.TemperatureConstant = 2.5
	s := NewStore("", cfg)
	if s.TemperatureConstant() != 2.5 {
		t.Errorf("got %v, want 2.5", s.TemperatureConstant())
	}
}
