// Package config loads the mines host configuration.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/database"
	"gopkg.in/yaml.v3"
)

// Config holds host-wide configuration settings.
type Config struct {
	// Seed is the game seed. 0 draws a fresh one at startup.
	Seed int64 `yaml:"seed"`

	// Day is the day the calendar starts on when no save exists.
	Day int `yaml:"day"`

	DataDir        string `yaml:"data_dir"`
	RulesFile      string `yaml:"rules_file"`
	MapsDir        string `yaml:"maps_dir"`
	BestiaryFile   string `yaml:"bestiary_file"`
	ProceduralMaps bool   `yaml:"procedural_maps"`

	Database database.Config `yaml:"database"`
	Sync     SyncConfig      `yaml:"sync"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Mines    MinesConfig     `yaml:"mines"`
}

// SyncConfig holds the event relay settings.
type SyncConfig struct {
	// Listen is the relay address. Empty disables the relay.
	Listen string `yaml:"listen"`

	// PollIntervalMS is how often queued events are pushed to participants.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// AllowedOrigins is a list of origins allowed to connect.
	// Empty list enforces same-origin policy; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the largest message a participant may send, in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxParticipants caps concurrent relay connections. 0 means unlimited.
	MaxParticipants int `yaml:"max_participants"`

	// MaxActions is how many actions a participant may send per
	// ActionWindowMS. 0 disables throttling.
	MaxActions     int `yaml:"max_actions"`
	ActionWindowMS int `yaml:"action_window_ms"`

	// RepeatCooldownMS drops an identical action resent within the window.
	RepeatCooldownMS int `yaml:"repeat_cooldown_ms"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Listen is the metrics address. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// MinesConfig tunes the engine loop.
type MinesConfig struct {
	ElevatorDelayMS  int `yaml:"elevator_delay_ms"`
	ClusterThreshold int `yaml:"cluster_threshold"`
	TickMS           int `yaml:"tick_ms"`

	// DaySeconds is the real-time length of a game day. 0 never advances.
	DaySeconds int `yaml:"day_seconds"`
}

// DefaultConfig returns a Config for a single host with a local SQLite store.
func DefaultConfig() *Config {
	return &Config{
		Day:            1,
		DataDir:        "data",
		RulesFile:      "data/rules.yaml",
		MapsDir:        "data/maps",
		BestiaryFile:   "data/bestiary.yaml",
		ProceduralMaps: true,
		Database:       database.DefaultConfig("data/mines.db"),
		Sync: SyncConfig{
			Listen:           ":4700",
			PollIntervalMS:   100,
			AllowedOrigins:   []string{}, // Same-origin only by default
			MaxMessageSize:   4096,
			MaxParticipants:  8,
			MaxActions:       30,
			ActionWindowMS:   1000,
			RepeatCooldownMS: 500,
		},
		Mines: MinesConfig{
			ElevatorDelayMS:  1500,
			ClusterThreshold: 35,
			TickMS:           50,
			DaySeconds:       1200,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// PollInterval returns the relay push interval.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(max(s.PollIntervalMS, 1)) * time.Millisecond
}

// ActionWindow returns the throttle window.
func (s SyncConfig) ActionWindow() time.Duration {
	return time.Duration(s.ActionWindowMS) * time.Millisecond
}

// RepeatCooldown returns how long an identical action is ignored.
func (s SyncConfig) RepeatCooldown() time.Duration {
	return time.Duration(s.RepeatCooldownMS) * time.Millisecond
}

// ElevatorDelay returns the delay before a new elevator lights.
func (m MinesConfig) ElevatorDelay() time.Duration {
	return time.Duration(m.ElevatorDelayMS) * time.Millisecond
}

// Tick returns the engine update interval.
func (m MinesConfig) Tick() time.Duration {
	return time.Duration(max(m.TickMS, 1)) * time.Millisecond
}

// DayLength returns the real-time length of a day, 0 if days never advance.
func (m MinesConfig) DayLength() time.Duration {
	return time.Duration(m.DaySeconds) * time.Second
}

// IsOriginAllowed checks if the given origin may open a relay connection.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (s *SyncConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(s.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
