package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Navidrome (Subsonic API) server credentials
	Navidrome NavidromeConfig

	// Last.fm API credentials
	LastFM LastFMConfig

	// Sync tuning knobs
	Sync SyncConfig
}

// NavidromeConfig holds the catalog server configuration
type NavidromeConfig struct {
	URL      string
	Username string
	Password string
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey     string
	APISecret  string
	SessionKey string
	Username   string

	// BaseURL overrides the API endpoint, for testing only.
	BaseURL string
}

// SyncConfig holds reconciliation tuning parameters
type SyncConfig struct {
	// FuzzyThreshold is the minimum token-sort similarity (0-100) both
	// artist and title must reach for a search candidate.
	FuzzyThreshold int

	// PerTrackRunLimit caps scrobbles per track per run.
	PerTrackRunLimit int

	// TrackTotalLimit is the lifetime cap on a track's remote playcount.
	TrackTotalLimit int

	// ScrobbleDelay paces successive scrobble submissions.
	ScrobbleDelay time.Duration

	// PageSize is the album-list page size for catalog scans.
	PageSize int

	// Workers bounds concurrent album fetches during catalog scans.
	Workers int

	// FailureLimit drops a track after this many consecutive emission
	// failures.
	FailureLimit int
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("sync.fuzzy_threshold", 85)
	v.SetDefault("sync.per_track_run_limit", 3)
	v.SetDefault("sync.track_total_limit", 100)
	v.SetDefault("sync.scrobble_delay", "5s")
	v.SetDefault("sync.page_size", 500)
	v.SetDefault("sync.workers", 5)
	v.SetDefault("sync.failure_limit", 3)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables (SYNCFM_NAVIDROME_URL, ...)
	v.SetEnvPrefix("SYNCFM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		Navidrome: NavidromeConfig{
			URL:      v.GetString("navidrome.url"),
			Username: v.GetString("navidrome.username"),
			Password: v.GetString("navidrome.password"),
		},
		LastFM: LastFMConfig{
			APIKey:     v.GetString("lastfm.api_key"),
			APISecret:  v.GetString("lastfm.api_secret"),
			SessionKey: v.GetString("lastfm.session_key"),
			Username:   v.GetString("lastfm.username"),
			BaseURL:    v.GetString("lastfm.base_url"),
		},
		Sync: SyncConfig{
			FuzzyThreshold:   v.GetInt("sync.fuzzy_threshold"),
			PerTrackRunLimit: v.GetInt("sync.per_track_run_limit"),
			TrackTotalLimit:  v.GetInt("sync.track_total_limit"),
			ScrobbleDelay:    v.GetDuration("sync.scrobble_delay"),
			PageSize:         v.GetInt("sync.page_size"),
			Workers:          v.GetInt("sync.workers"),
			FailureLimit:     v.GetInt("sync.failure_limit"),
		},
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "syncfm")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// JournalPath returns the default path of the scrobble journal database.
func JournalPath() string {
	return filepath.Join(getConfigDir(), "journal.db")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("navidrome.url", c.Navidrome.URL)
	v.Set("navidrome.username", c.Navidrome.Username)
	v.Set("navidrome.password", c.Navidrome.Password)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)
	v.Set("lastfm.session_key", c.LastFM.SessionKey)
	v.Set("lastfm.username", c.LastFM.Username)
	v.Set("sync.fuzzy_threshold", c.Sync.FuzzyThreshold)
	v.Set("sync.per_track_run_limit", c.Sync.PerTrackRunLimit)
	v.Set("sync.track_total_limit", c.Sync.TrackTotalLimit)
	v.Set("sync.scrobble_delay", c.Sync.ScrobbleDelay.String())
	v.Set("sync.page_size", c.Sync.PageSize)
	v.Set("sync.workers", c.Sync.Workers)
	v.Set("sync.failure_limit", c.Sync.FailureLimit)

	// Write to file
	return v.WriteConfigAs(configFile)
}
