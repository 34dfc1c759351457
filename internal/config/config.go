// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Population PopulationConfig `mapstructure:"population"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Storage    StorageConfig    `mapstructure:"storage"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Reports    ReportsConfig    `mapstructure:"reports"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// RemoteConfig points the sync at the upstream directory listing.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Marker filters directory hyperlinks during sync; every dataset
	// file shares it ("pr.").
	Marker string `mapstructure:"marker"`
	// FragmentMarker selects the stored keys that hold time-series
	// rows ("pr.data"); narrower than Marker, which also admits
	// mapping files like pr.series and pr.class.
	FragmentMarker string `mapstructure:"fragment_marker"`
	ContactEmail   string `mapstructure:"contact_email"`
	DelayMs        int    `mapstructure:"delay_ms"`
}

// PopulationConfig points the ingest at the population API.
type PopulationConfig struct {
	APIURL    string `mapstructure:"api_url"`
	TargetKey string `mapstructure:"target_key"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig sets the bucket and key prefix for blob persistence.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the run-history database. An empty DSN
// keeps run history in memory.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	TopicName        string `mapstructure:"topic_name"`
	SubscriptionName string `mapstructure:"subscription_name"`
}

// ReportsConfig tunes the analytics report filters.
type ReportsConfig struct {
	SeriesID string `mapstructure:"series_id"`
	Period   string `mapstructure:"period"`
	MinYear  int    `mapstructure:"min_year"`
	MaxYear  int    `mapstructure:"max_year"`
}

// SchedulerConfig sets the automatic ingestion cadence.
type SchedulerConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LABORSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("remote.base_url", "https://download.bls.gov/pub/time.series/pr/")
	v.SetDefault("remote.marker", "pr.")
	v.SetDefault("remote.fragment_marker", "pr.data")
	v.SetDefault("remote.contact_email", "data@example.com")
	v.SetDefault("remote.delay_ms", 500)
	v.SetDefault("population.api_url", "https://honolulu-api.datausa.io/tesseract/data.jsonrecords?cube=acs_yg_total_population_1&drilldowns=Year,Nation&measures=Population")
	v.SetDefault("population.target_key", "population_data.json")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("storage.prefix", "bls-data/")
	v.SetDefault("db.table", "pipeline_runs")
	v.SetDefault("reports.series_id", "PRS30006032")
	v.SetDefault("reports.period", "Q01")
	v.SetDefault("reports.min_year", 2013)
	v.SetDefault("reports.max_year", 2018)
	v.SetDefault("scheduler.interval_hours", 24)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url must be set")
	}
	if c.Remote.FragmentMarker == "" {
		return fmt.Errorf("remote.fragment_marker must be set")
	}
	if c.Population.APIURL == "" {
		return fmt.Errorf("population.api_url must be set")
	}
	if c.Population.TargetKey == "" {
		return fmt.Errorf("population.target_key must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Reports.MinYear > c.Reports.MaxYear {
		return fmt.Errorf("reports.min_year must not exceed reports.max_year")
	}
	if c.Scheduler.IntervalHours <= 0 {
		return fmt.Errorf("scheduler.interval_hours must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// RequestDelay converts the configured inter-request delay to a duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Remote.DelayMs) * time.Millisecond
}

// HTTPTimeout converts the configured outbound timeout to a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SchedulerInterval converts the configured cadence to a duration.
func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalHours) * time.Hour
}
