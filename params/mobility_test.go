package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_MatchesBuiltInDefaults(t *testing.T) {
	c := DefaultConfig()
	cases := map[string]bool{
		"StateSize":         c.StateSize == 5,
		"StateTimespan":     c.StateTimespan == 1000,
		"GapPeriod":         c.GapPeriod == 600,
		"LowSpeed":          c.LowSpeed == 2.0,
		"MaxSpeed":          c.MaxSpeed == 30.0,
		"NoSpeed":           c.NoSpeed == 0.5,
		"SpeedRatio":        c.SpeedRatio == 0.25,
		"MaxRateOfChange":   c.MaxRateOfChange == 100.0,
		"MaxRateOfTurn":     c.MaxRateOfTurn == 3.0,
		"DistanceThreshold": c.DistanceThreshold == 50.0,
		"AngleThreshold":    c.AngleThreshold == 5.0,
	}
	for field, ok := range cases {
		if !ok {
			t.Errorf("%s: unexpected default value, got %+v", field, c)
		}
	}
}

func writeTemp(t *testing.T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write temp settings: %v", err)
	}
	return path
}

func TestLoadVesselConfigs_OverlaysRecognizedKeysOnly(t *testing.T) {
	path := writeTemp(t, `{
		"Cargo": {"MAX_SPEED_THRESHOLD": 25.0, "GAP_PERIOD": 300},
		"Default": {"LOW_SPEED_THRESHOLD": 1.5}
	}`)

	configs, err := LoadVesselConfigs(path)
	if err != nil {
		t.Fatalf("LoadVesselConfigs: %v", err)
	}

	cargo, ok := configs["Cargo"]
	if !ok {
		t.Fatalf("want a Cargo config")
	}
	if cargo.MaxSpeed != 25.0 {
		t.Errorf("want overridden MaxSpeed=25.0, got %v", cargo.MaxSpeed)
	}
	if cargo.GapPeriod != 300 {
		t.Errorf("want overridden GapPeriod=300, got %v", cargo.GapPeriod)
	}
	if cargo.StateSize != 5 {
		t.Errorf("want un-overridden StateSize to keep its default, got %v", cargo.StateSize)
	}

	def, ok := configs[DefaultVesselType]
	if !ok {
		t.Fatalf("want a Default config")
	}
	if def.LowSpeed != 1.5 {
		t.Errorf("want overridden LowSpeed=1.5, got %v", def.LowSpeed)
	}
}

func TestLoadVesselConfigs_SynthesizesDefaultWhenAbsent(t *testing.T) {
	path := writeTemp(t, `{"Cargo": {"MAX_SPEED_THRESHOLD": 25.0}}`)

	configs, err := LoadVesselConfigs(path)
	if err != nil {
		t.Fatalf("LoadVesselConfigs: %v", err)
	}

	def, ok := configs[DefaultVesselType]
	if !ok {
		t.Fatalf("want a synthesized Default config")
	}
	want := DefaultConfig()
	if *def != want {
		t.Errorf("want the synthesized Default to equal the built-in defaults, got %+v", def)
	}
}

func TestLookup_FallsBackToDefault(t *testing.T) {
	def := DefaultConfig()
	configs := map[string]*Config{DefaultVesselType: &def}

	got := Lookup(configs, "Unknown")
	if got != &def {
		t.Errorf("want fallback to Default config")
	}
}
