package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Logging     LoggingConfig     `toml:"logging"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Pipelines   []PipelineDef     `toml:"pipelines"`
	Stations    []StationDef      `toml:"stations"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and client tuning.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	RefreshToken      string  `toml:"refresh_token"`
	Market            string  `toml:"market"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// MetricsConfig controls where run metrics are written. An empty textfile disables metrics output.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// ResolverConfig tunes the track resolver.
type ResolverConfig struct {
	Strategy       string `toml:"strategy"` // first_hit or best_match
	SearchLimit    int    `toml:"search_limit"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
}

// PipelineDef is the declarative form of one pipeline task.
type PipelineDef struct {
	Name              string    `toml:"name"`
	TargetPlaylistID  string    `toml:"target_playlist_id"`
	DescriptionPrefix string    `toml:"description_prefix"`
	Steps             []StepDef `toml:"steps"`
}

// PipeDef is a nested step chain, used by combine sources.
type PipeDef struct {
	Steps []StepDef `toml:"steps"`
}

// StepDef is the declarative form of a single pipeline step. Which fields apply depends on Type.
type StepDef struct {
	Type                   string    `toml:"type"`
	ID                     string    `toml:"id"`
	N                      *int      `toml:"n"`
	AlbumTypes             []string  `toml:"album_types"`
	ExcludeTitleContaining []string  `toml:"exclude_title_containing"`
	Sources                []PipeDef `toml:"sources"`
	Denylist               []StepDef `toml:"denylist"`
}

// StationDef describes a scraped-source refresh task.
type StationDef struct {
	Name              string `toml:"name"`
	FeedURL           string `toml:"feed_url"`
	PlaylistID        string `toml:"playlist_id"`
	DescriptionPrefix string `toml:"description_prefix"`
	Dedup             bool   `toml:"dedup"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads a dotenv file (if present) and lets SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and
// SPOTIFY_REFRESH_TOKEN override the file credentials. Variables already in the environment win over the dotenv file.
func (c *Config) LoadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	overrides := map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REFRESH_TOKEN": &c.Credentials.Spotify.RefreshToken,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
	return nil
}

// Validate checks the task definitions for missing names and targets.
// Step trees are validated when they are parsed into pipelines.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("%w: pipelines[%d] has no name", ErrInvalidConfig, i)
		}
		if p.TargetPlaylistID == "" {
			return fmt.Errorf("%w: pipeline %q has no target_playlist_id", ErrInvalidConfig, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate task name %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true
	}

	for i, s := range c.Stations {
		if s.Name == "" {
			return fmt.Errorf("%w: stations[%d] has no name", ErrInvalidConfig, i)
		}
		if s.FeedURL == "" || s.PlaylistID == "" {
			return fmt.Errorf("%w: station %q needs feed_url and playlist_id", ErrInvalidConfig, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate task name %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}

	switch c.Resolver.Strategy {
	case "", "first_hit", "best_match":
	default:
		return fmt.Errorf("%w: unknown resolver strategy %q", ErrInvalidConfig, c.Resolver.Strategy)
	}

	return nil
}

// Pipeline returns the pipeline definition with the given name.
func (c *Config) Pipeline(name string) (PipelineDef, bool) {
	for _, p := range c.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return PipelineDef{}, false
}

// Station returns the station definition with the given name.
func (c *Config) Station(name string) (StationDef, bool) {
	for _, s := range c.Stations {
		if s.Name == name {
			return s, true
		}
	}
	return StationDef{}, false
}
