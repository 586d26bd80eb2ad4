// Package stationconfig loads Station's configuration in the same
// three layers towerconfig uses: an optional YAML file, an optional
// .env file, then environment variables and --flag overrides (highest
// precedence).
package stationconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds Station's startup tuning: where its assets and socket
// live, and the DJ's talk-spacing/ID-interval policy, in the teacher's
// flat exported-field style.
type Config struct {
	SocketPath string `yaml:"socket_path"`
	MusicDir   string `yaml:"music_dir"`
	AssetsDir  string `yaml:"assets_dir"`

	StrictIntentAssertions bool `yaml:"strict_intent_assertions"`

	LegalIDIntervalSec int `yaml:"legal_id_interval"`
	GenericIDMinSec    int `yaml:"generic_id_min"`
	MinTalkSpacingSec  int `yaml:"min_talk_spacing"`
	MaxTalkSilenceSec  int `yaml:"max_talk_silence"`
	// CooldownLen is a count of most-recently-used intros excluded from
	// reselection (internal/djcore.Config.CooldownLen), not a duration.
	CooldownLen int `yaml:"cooldown_len"`

	// Adaptive pacing settings. They are loaded and validated only:
	// cmd/station does not read them, and internal/pacer uses its own
	// fixed zone constants (20%/70%, 0/18/30ms).
	AdaptivePacingEnabled bool `yaml:"adaptive_pacing_enabled"`
	LowZoneMaxFillPct     int  `yaml:"low_zone_max_fill_pct"`
	SweetZoneMaxFillPct   int  `yaml:"sweet_zone_max_fill_pct"`
	SweetZoneSleepMs      int  `yaml:"sweet_zone_sleep_ms"`
	HighZoneSleepMs       int  `yaml:"high_zone_sleep_ms"`
}

// Default returns spec's default tuning.
func Default() Config {
	return Config{
		SocketPath:            "/tmp/retrowaves-tower.sock",
		MusicDir:              "./music",
		AssetsDir:             "./assets",
		StrictIntentAssertions: false,
		LegalIDIntervalSec:    1800,
		GenericIDMinSec:       600,
		MinTalkSpacingSec:     300,
		MaxTalkSilenceSec:     3600,
		CooldownLen:           5,
		AdaptivePacingEnabled: false,
		LowZoneMaxFillPct:     20,
		SweetZoneMaxFillPct:   70,
		SweetZoneSleepMs:      18,
		HighZoneSleepMs:       30,
	}
}

// Load builds a Config from Default(), an optional YAML file, an
// optional .env file, environment variables, then --flag overrides.
func Load(yamlPath, envPath string, args []string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := applyYAML(&cfg, yamlPath); err != nil {
			return Config{}, err
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stationconfig: loading .env: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := applyFlags(&cfg, args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func applyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stationconfig: reading yaml config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("stationconfig: parsing yaml config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("STATION_SOCKET_PATH"); ok {
		cfg.SocketPath = v
	}
	if v, ok := os.LookupEnv("STATION_MUSIC_DIR"); ok {
		cfg.MusicDir = v
	}
	if v, ok := os.LookupEnv("STATION_ASSETS_DIR"); ok {
		cfg.AssetsDir = v
	}
	if v, ok := getEnvAsBool("STATION_STRICT_INTENT_ASSERTIONS"); ok {
		cfg.StrictIntentAssertions = v
	}
	if v, ok := getEnvAsInt("STATION_LEGAL_ID_INTERVAL"); ok {
		cfg.LegalIDIntervalSec = v
	}
	if v, ok := getEnvAsInt("STATION_GENERIC_ID_MIN"); ok {
		cfg.GenericIDMinSec = v
	}
	if v, ok := getEnvAsInt("STATION_MIN_TALK_SPACING"); ok {
		cfg.MinTalkSpacingSec = v
	}
	if v, ok := getEnvAsInt("STATION_MAX_TALK_SILENCE"); ok {
		cfg.MaxTalkSilenceSec = v
	}
	if v, ok := getEnvAsInt("STATION_COOLDOWN_LEN"); ok {
		cfg.CooldownLen = v
	}
	if v, ok := getEnvAsBool("STATION_ADAPTIVE_PACING_ENABLED"); ok {
		cfg.AdaptivePacingEnabled = v
	}
}

func applyFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("station", pflag.ContinueOnError)

	socketPath := fs.String("socket-path", cfg.SocketPath, "Tower PCM socket path to dial")
	musicDir := fs.String("music-dir", cfg.MusicDir, "directory to scan for music assets")
	assetsDir := fs.String("assets-dir", cfg.AssetsDir, "directory of station IDs/announcements")
	strict := fs.Bool("strict-intent-assertions", cfg.StrictIntentAssertions, "run full tail-match assertions after every DO enqueue")
	adaptivePacing := fs.Bool("adaptive-pacing", cfg.AdaptivePacingEnabled, "adaptive pacing setting (stored in Config only; Station paces at the nominal frame period)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("stationconfig: parsing flags: %w", err)
	}

	cfg.SocketPath = *socketPath
	cfg.MusicDir = *musicDir
	cfg.AssetsDir = *assetsDir
	cfg.StrictIntentAssertions = *strict
	cfg.AdaptivePacingEnabled = *adaptivePacing
	return nil
}

// Validate rejects configuration Station cannot start with.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("stationconfig: socket_path must not be empty")
	}
	if c.LowZoneMaxFillPct < 0 || c.LowZoneMaxFillPct > c.SweetZoneMaxFillPct || c.SweetZoneMaxFillPct > 100 {
		return fmt.Errorf("stationconfig: pacing zone bounds must satisfy 0 <= low <= sweet <= 100")
	}
	return nil
}

// LegalIDInterval returns LegalIDIntervalSec as a time.Duration.
func (c Config) LegalIDInterval() time.Duration {
	return time.Duration(c.LegalIDIntervalSec) * time.Second
}

// GenericIDMin returns GenericIDMinSec as a time.Duration.
func (c Config) GenericIDMin() time.Duration {
	return time.Duration(c.GenericIDMinSec) * time.Second
}

// MinTalkSpacing returns MinTalkSpacingSec as a time.Duration.
func (c Config) MinTalkSpacing() time.Duration {
	return time.Duration(c.MinTalkSpacingSec) * time.Second
}

// MaxTalkSilence returns MaxTalkSilenceSec as a time.Duration.
func (c Config) MaxTalkSilence() time.Duration {
	return time.Duration(c.MaxTalkSilenceSec) * time.Second
}

func getEnvAsInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvAsBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
