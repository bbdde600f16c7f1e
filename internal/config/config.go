// Package config provides configuration management for moodlens.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Defaults.
const (
	DefaultWorkerHost       = "127.0.0.1"
	DefaultWorkerPort       = 37788
	DefaultUserID           = "local"
	DefaultMaxConns         = 4
	DefaultRemoteTimeoutMS  = 10000
	DefaultThinkingDelayMin = 800
	DefaultThinkingDelayMax = 1500
)

// Database drivers. The empty driver keeps the journal in memory on seed data.
const (
	DriverNone     = ""
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Settings keys, also read from the environment.
const (
	KeyWorkerHost       = "MOODLENS_WORKER_HOST"
	KeyWorkerPort       = "MOODLENS_WORKER_PORT"
	KeyDBDriver         = "MOODLENS_DB_DRIVER"
	KeyDBPath           = "MOODLENS_DB_PATH"
	KeyDatabaseURL      = "MOODLENS_DATABASE_URL"
	KeyUserID           = "MOODLENS_USER_ID"
	KeyMaxConns         = "MOODLENS_MAX_CONNS"
	KeyRemoteTimeoutMS  = "MOODLENS_REMOTE_TIMEOUT_MS"
	KeyThinkingDelayMin = "MOODLENS_THINKING_DELAY_MIN_MS"
	KeyThinkingDelayMax = "MOODLENS_THINKING_DELAY_MAX_MS"
	KeyReferenceTime    = "MOODLENS_REFERENCE_TIME"
	KeyProactive        = "MOODLENS_PROACTIVE"
	KeyRulesPath        = "MOODLENS_RULES_PATH"
	KeyAllowedOrigins   = "MOODLENS_ALLOWED_ORIGINS"
)

var allKeys = []string{
	KeyWorkerHost, KeyWorkerPort, KeyDBDriver, KeyDBPath, KeyDatabaseURL, KeyUserID,
	KeyMaxConns, KeyRemoteTimeoutMS, KeyThinkingDelayMin, KeyThinkingDelayMax,
	KeyReferenceTime, KeyProactive, KeyRulesPath, KeyAllowedOrigins,
}

// Config holds moodlens settings.
type Config struct {
	WorkerHost     string   `json:"worker_host"`
	DBDriver       string   `json:"db_driver"`
	DBPath         string   `json:"db_path"`
	DatabaseURL    string   `json:"-"`
	UserID         string   `json:"user_id"`
	RulesPath      string   `json:"rules_path"`
	AllowedOrigins []string `json:"allowed_origins"`

	WorkerPort      int `json:"worker_port"`
	MaxConns        int `json:"max_conns"`
	RemoteTimeoutMS int `json:"remote_timeout_ms"`
	ThinkingMinMS   int `json:"thinking_delay_min_ms"`
	ThinkingMaxMS   int `json:"thinking_delay_max_ms"`

	// ReferenceTime freezes "today" at this epoch millis instant; 0 uses the wall clock.
	ReferenceTime int64 `json:"reference_time"`

	Proactive bool `json:"proactive"`
}

var (
	global     *Config
	globalOnce sync.Once
)

// DataDir returns the moodlens data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".moodlens")
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "moodlens.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// RulesPath returns the default companion rule table path.
func RulesPath() string {
	return filepath.Join(DataDir(), "rules.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkerHost:      DefaultWorkerHost,
		WorkerPort:      DefaultWorkerPort,
		DBDriver:        DriverNone,
		DBPath:          DBPath(),
		UserID:          DefaultUserID,
		MaxConns:        DefaultMaxConns,
		RemoteTimeoutMS: DefaultRemoteTimeoutMS,
		ThinkingMinMS:   DefaultThinkingDelayMin,
		ThinkingMaxMS:   DefaultThinkingDelayMax,
		Proactive:       true,
		RulesPath:       RulesPath(),
	}
}

// Load reads settings.json and applies environment overrides.
// A missing or unparseable file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	settings := make(map[string]any)
	data, err := os.ReadFile(SettingsPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &settings); err != nil {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("Invalid settings file, using defaults")
			settings = make(map[string]any)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	for _, key := range allKeys {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			settings[key] = v
		}
	}

	cfg.apply(settings)
	return cfg, nil
}

func (c *Config) apply(s map[string]any) {
	if v, ok := getString(s, KeyWorkerHost); ok {
		c.WorkerHost = v
	}
	if v, ok := getInt(s, KeyWorkerPort); ok && v > 0 {
		c.WorkerPort = int(v)
	}
	if v, ok := getString(s, KeyDBDriver); ok {
		c.DBDriver = strings.ToLower(v)
	}
	if v, ok := getString(s, KeyDBPath); ok {
		c.DBPath = v
	}
	if v, ok := getString(s, KeyDatabaseURL); ok {
		c.DatabaseURL = v
	}
	if v, ok := getString(s, KeyUserID); ok {
		c.UserID = v
	}
	if v, ok := getInt(s, KeyMaxConns); ok && v > 0 {
		c.MaxConns = int(v)
	}
	if v, ok := getInt(s, KeyRemoteTimeoutMS); ok && v > 0 {
		c.RemoteTimeoutMS = int(v)
	}
	if v, ok := getInt(s, KeyThinkingDelayMin); ok && v >= 0 {
		c.ThinkingMinMS = int(v)
	}
	if v, ok := getInt(s, KeyThinkingDelayMax); ok && v >= 0 {
		c.ThinkingMaxMS = int(v)
	}
	if c.ThinkingMaxMS < c.ThinkingMinMS {
		c.ThinkingMaxMS = c.ThinkingMinMS
	}
	if v, ok := getInt(s, KeyReferenceTime); ok && v >= 0 {
		c.ReferenceTime = v
	}
	if v, ok := getBool(s, KeyProactive); ok {
		c.Proactive = v
	}
	if v, ok := getString(s, KeyRulesPath); ok {
		c.RulesPath = v
	}
	if v, ok := getString(s, KeyAllowedOrigins); ok {
		c.AllowedOrigins = splitTrim(v)
	}
}

// RemoteTimeout returns the per-call timeout for the database.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// ThinkingDelay returns the companion's reply delay window.
func (c *Config) ThinkingDelay() (time.Duration, time.Duration) {
	return time.Duration(c.ThinkingMinMS) * time.Millisecond, time.Duration(c.ThinkingMaxMS) * time.Millisecond
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load settings, using defaults")
			cfg = Default()
		}
		global = cfg
	})
	return global
}

// EnsureDataDir creates the data directory.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a settings file with the defaults if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	d := Default()
	defaults := map[string]any{
		KeyWorkerHost:       d.WorkerHost,
		KeyWorkerPort:       d.WorkerPort,
		KeyDBDriver:         d.DBDriver,
		KeyUserID:           d.UserID,
		KeyMaxConns:         d.MaxConns,
		KeyRemoteTimeoutMS:  d.RemoteTimeoutMS,
		KeyThinkingDelayMin: d.ThinkingMinMS,
		KeyThinkingDelayMax: d.ThinkingMaxMS,
		KeyReferenceTime:    d.ReferenceTime,
		KeyProactive:        d.Proactive,
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and the settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

func getString(s map[string]any, key string) (string, bool) {
	switch v := s[key].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func getInt(s map[string]any, key string) (int64, bool) {
	switch v := s[key].(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func getBool(s map[string]any, key string) (bool, bool) {
	switch v := s[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

// splitTrim splits a comma-separated list, trimming and dropping empty values.
func splitTrim(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
