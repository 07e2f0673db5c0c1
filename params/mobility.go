// Package params holds the per-vessel-type Config bundle and the JSON
// settings-document loader for the mobility annotation pipeline.
package params

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
)

// DefaultVesselType is the fallback key applied when a vessel's type is
// unknown or its type has no entry in the settings document.
const DefaultVesselType = "Default"

// Config is a read-only bundle of mobility thresholds for one vessel
// type. Many States may hold a pointer to the same Config.
type Config struct {
	VesselType string

	StateSize     uint   // max retained observations per object
	StateTimespan uint   // seconds: max retained age
	GapPeriod     uint   // seconds: elapsed time above which a gap is declared

	LowSpeed  float64 // knots: below this, the vessel is in slow motion
	MaxSpeed  float64 // knots: at or above this, the location is noise
	NoSpeed   float64 // knots: below this, the vessel is considered stopped

	SpeedRatio       float64 // fractional change vs. mean speed
	MaxRateOfChange  float64 // knots/hour
	MaxRateOfTurn    float64 // degrees/sec

	DistanceThreshold float64 // meters
	AngleThreshold    float64 // degrees
}

// DefaultConfig returns a Config seeded with the built-in defaults.
// Callers mutate a copy, never the zero value shared elsewhere.
func DefaultConfig() Config {
	return Config{
		VesselType:        DefaultVesselType,
		StateSize:         5,
		StateTimespan:      1000,
		GapPeriod:          600,
		LowSpeed:           2.0,
		MaxSpeed:           30.0,
		NoSpeed:            0.5,
		SpeedRatio:         0.25,
		MaxRateOfChange:    100.0,
		MaxRateOfTurn:      3.0,
		DistanceThreshold:  50.0,
		AngleThreshold:     5.0,
	}
}

// settingsKeys maps the JSON document's recognized keys to setter
// functions applied against a Config seeded with defaults.
var settingsKeys = []struct {
	key string
	set func(c *Config, v *viper.Viper)
}{
	{"STATE_SIZE", func(c *Config, v *viper.Viper) { c.StateSize = uint(v.GetInt("STATE_SIZE")) }},
	{"STATE_TIMESPAN", func(c *Config, v *viper.Viper) { c.StateTimespan = uint(v.GetInt("STATE_TIMESPAN")) }},
	{"GAP_PERIOD", func(c *Config, v *viper.Viper) { c.GapPeriod = uint(v.GetInt("GAP_PERIOD")) }},
	{"LOW_SPEED_THRESHOLD", func(c *Config, v *viper.Viper) { c.LowSpeed = v.GetFloat64("LOW_SPEED_THRESHOLD") }},
	{"MAX_SPEED_THRESHOLD", func(c *Config, v *viper.Viper) { c.MaxSpeed = v.GetFloat64("MAX_SPEED_THRESHOLD") }},
	{"NO_SPEED_THRESHOLD", func(c *Config, v *viper.Viper) { c.NoSpeed = v.GetFloat64("NO_SPEED_THRESHOLD") }},
	{"SPEED_RATIO", func(c *Config, v *viper.Viper) { c.SpeedRatio = v.GetFloat64("SPEED_RATIO") }},
	{"MAX_RATE_OF_CHANGE", func(c *Config, v *viper.Viper) { c.MaxRateOfChange = v.GetFloat64("MAX_RATE_OF_CHANGE") }},
	{"MAX_RATE_OF_TURN", func(c *Config, v *viper.Viper) { c.MaxRateOfTurn = v.GetFloat64("MAX_RATE_OF_TURN") }},
	{"DISTANCE_THRESHOLD", func(c *Config, v *viper.Viper) { c.DistanceThreshold = v.GetFloat64("DISTANCE_THRESHOLD") }},
	{"ANGLE_THRESHOLD", func(c *Config, v *viper.Viper) { c.AngleThreshold = v.GetFloat64("ANGLE_THRESHOLD") }},
}

// LoadVesselConfigs parses a settings JSON document keyed by vessel type
// and returns one Config per key, each seeded with DefaultConfig() and
// overlaid with whichever of the recognized keys are present in that
// vessel's sub-document. If the document has no top-level "Default" key,
// one is synthesized from the built-in defaults, matching the reference
// loader's auto-synthesis behavior.
func LoadVesselConfigs(path string) (map[string]*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("settings document is not a JSON object")
	}

	out := make(map[string]*Config)
	sawDefault := false

	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		vesselType := key.String()
		if vesselType == DefaultVesselType {
			sawDefault = true
		}

		sub := viper.New()
		sub.SetConfigType("json")
		if err := sub.ReadConfig(bytes.NewReader([]byte(value.Raw))); err != nil {
			parseErr = fmt.Errorf("parse settings for vessel type %q: %w", vesselType, err)
			return false
		}

		cfg := DefaultConfig()
		cfg.VesselType = vesselType
		for _, sk := range settingsKeys {
			if sub.IsSet(sk.key) {
				sk.set(&cfg, sub)
			}
		}
		out[vesselType] = &cfg
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if !sawDefault {
		def := DefaultConfig()
		out[DefaultVesselType] = &def
	}

	return out, nil
}

// Lookup returns the Config for vesselType, falling back to "Default".
func Lookup(configs map[string]*Config, vesselType string) *Config {
	if cfg, ok := configs[vesselType]; ok {
		return cfg
	}
	return configs[DefaultVesselType]
}
