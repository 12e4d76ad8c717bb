package shared

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Orphan handling policies for live items whose audio file is missing on disk.
const (
	OrphanPolicyLenient = "lenient"
	OrphanPolicyStrict  = "strict"
)

// Duplicate handling policies for repeated remote ids within a playlist.
const (
	DuplicatePolicyWarn   = "warn"
	DuplicatePolicyDedupe = "dedupe"
)

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Library     LibraryConfig     `toml:"library"`
	YouTube     YouTubeConfig     `toml:"youtube"`
	Downloader  DownloaderConfig  `toml:"downloader"`
	Healthcheck HealthcheckConfig `toml:"healthcheck"`
	Policy      PolicyConfig      `toml:"policy"`
	Database    DatabaseConfig    `toml:"database"`
}

// LibraryConfig locates the music root and the audio extension of stored files.
type LibraryConfig struct {
	MusicDirectory string `toml:"music_directory"`
	AudioFormat    string `toml:"audio_format"`
}

// YouTubeConfig contains YouTube Data API credentials and the playlists to synchronize.
type YouTubeConfig struct {
	APIKey            string        `toml:"api_key"`
	Playlists         []string      `toml:"playlists"`
	RegionCode        string        `toml:"region_code"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	MaxRetries        int           `toml:"max_retries"`
	HTTPTimeout       time.Duration `toml:"http_timeout"`
}

// DownloaderConfig configures the external download tool.
type DownloaderConfig struct {
	YtdlpPath string        `toml:"ytdlp_path"`
	Timeout   time.Duration `toml:"timeout"`
	Retries   int           `toml:"retries"`
}

// HealthcheckConfig contains the health-reporting endpoint settings.
type HealthcheckConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	ID      string `toml:"id"`
	Strict  bool   `toml:"strict"`
}

// PolicyConfig selects how diagnostic conditions are handled.
type PolicyConfig struct {
	Orphans    string `toml:"orphans"`
	Duplicates string `toml:"duplicates"`
}

// DatabaseConfig contains run history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// Resolve builds the effective configuration.
//
// Precedence is environment > config file > embedded defaults. A missing config file is not an error.
// envFiles are loaded with [godotenv.Load] first; missing env files are ignored.
func Resolve(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
			}
		}
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config values from environment variables using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(target *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				*target = strings.TrimSpace(v)
				return
			}
		}
	}
	boolean := func(target *bool, key string) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s is not a boolean: %q", ErrInvalidConfig, key, v)
		}
		*target = b
		return nil
	}

	str(&c.Library.MusicDirectory, "MUSIC_DIRECTORY")
	str(&c.YouTube.APIKey, "YOUTUBE_API_KEY", "API_KEY")
	str(&c.YouTube.RegionCode, "YOUTUBE_REGION_CODE", "CURRENT_COUNTRY")
	str(&c.Downloader.YtdlpPath, "YTDLP_PATH")
	str(&c.Healthcheck.ID, "HEALTHCHECK_ID")
	str(&c.Healthcheck.URL, "HEALTHCHECK_URL")
	str(&c.Database.Path, "DATABASE_PATH")
	str(&c.Policy.Orphans, "ORPHAN_POLICY")
	str(&c.Policy.Duplicates, "DUPLICATE_POLICY")

	if v, ok := lookup("YOUTUBE_PLAYLISTS"); ok {
		c.YouTube.Playlists = SplitPlaylists(v)
	} else if v, ok := lookup("PLAYLIST_IDS"); ok {
		c.YouTube.Playlists = SplitPlaylists(v)
	}

	if err := boolean(&c.Healthcheck.Enabled, "HEALTHCHECKS_ENABLED"); err != nil {
		return err
	}
	if err := boolean(&c.Healthcheck.Strict, "HEALTHCHECK_STRICT"); err != nil {
		return err
	}

	if v, ok := lookup("YOUTUBE_REQUESTS_PER_SECOND"); ok {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: YOUTUBE_REQUESTS_PER_SECOND is not a number: %q", ErrInvalidConfig, v)
		}
		c.YouTube.RequestsPerSecond = rps
	}

	return nil
}

// SplitPlaylists splits a comma-separated list of playlist identifiers.
//
// Entries are trimmed but empty entries are kept so that [Config.Validate] can report them.
func SplitPlaylists(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Validate checks that every required setting is present before any I/O happens.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"library.music_directory", c.Library.MusicDirectory},
		{"library.audio_format", c.Library.AudioFormat},
		{"youtube.api_key", c.YouTube.APIKey},
		{"downloader.ytdlp_path", c.Downloader.YtdlpPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, r.key)
		}
	}

	if len(c.YouTube.Playlists) == 0 {
		return fmt.Errorf("%w: youtube.playlists is empty", ErrInvalidConfig)
	}
	for i, id := range c.YouTube.Playlists {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: youtube.playlists[%d] is empty", ErrInvalidConfig, i)
		}
	}

	rps := c.YouTube.RequestsPerSecond
	if math.IsNaN(rps) || math.IsInf(rps, 0) || rps <= 0 {
		return fmt.Errorf("%w: youtube.requests_per_second is not a positive number", ErrInvalidConfig)
	}
	if c.YouTube.MaxRetries < 0 {
		return fmt.Errorf("%w: youtube.max_retries is negative", ErrInvalidConfig)
	}
	if c.Downloader.Retries < 0 {
		return fmt.Errorf("%w: downloader.retries is negative", ErrInvalidConfig)
	}
	if c.Downloader.Timeout < 0 || c.YouTube.HTTPTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	switch c.Policy.Orphans {
	case OrphanPolicyLenient, OrphanPolicyStrict:
	default:
		return fmt.Errorf("%w: policy.orphans must be %q or %q, got %q",
			ErrInvalidConfig, OrphanPolicyLenient, OrphanPolicyStrict, c.Policy.Orphans)
	}
	switch c.Policy.Duplicates {
	case DuplicatePolicyWarn, DuplicatePolicyDedupe:
	default:
		return fmt.Errorf("%w: policy.duplicates must be %q or %q, got %q",
			ErrInvalidConfig, DuplicatePolicyWarn, DuplicatePolicyDedupe, c.Policy.Duplicates)
	}

	if c.Healthcheck.Enabled {
		if strings.TrimSpace(c.Healthcheck.URL) == "" {
			return fmt.Errorf("%w: healthcheck.url is empty", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Healthcheck.ID) == "" {
			return fmt.Errorf("%w: healthcheck.id is empty", ErrInvalidConfig)
		}
	}

	return nil
}
