// Package towerconfig loads Tower's configuration in three layers: an
// optional YAML file, an optional .env file, then environment
// variables and --flag overrides (highest precedence), widening the
// teacher's single getEnv/getEnvAsInt pair into the layered shape a
// deployable service needs.
package towerconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable Tower reads at startup. Field names mirror
// spec's HTTP API/config table (host, port, socket_path, bitrate, ...)
// in the teacher's flat, exported-field style.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	SocketPath string `yaml:"socket_path"`

	StationName string `yaml:"station_name"`
	MaxClients  int    `yaml:"max_clients"`

	BitrateKbps int `yaml:"bitrate_kbps"`

	DefaultSource   string  `yaml:"default_source"`
	DefaultFilePath string  `yaml:"default_file_path"`
	ToneFrequency   float64 `yaml:"tone_frequency"`

	RouterIdleTimeoutSec int `yaml:"router_idle_timeout_sec"`
	PCMGraceSec          int `yaml:"pcm_grace_sec"`

	ClientTimeoutMs   int `yaml:"client_timeout_ms"`
	ClientBufferBytes int `yaml:"client_buffer_bytes"`

	EncoderBackoffMs      []int `yaml:"encoder_backoff_ms"`
	EncoderMaxRestarts    int   `yaml:"encoder_max_restarts"`
	EncoderStallThreshold int   `yaml:"encoder_stall_threshold_ms"`

	JitterMinChunks     int `yaml:"encoder_jitter_min_chunks"`
	JitterRecoverChunks int `yaml:"encoder_jitter_recover_chunks"`
	JitterReadIntervalMs int `yaml:"encoder_jitter_read_interval_ms"`
}

// Default returns spec's default tuning.
func Default() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 8000,
		SocketPath:           "/tmp/retrowaves-tower.sock",
		StationName:          "Retrowaves",
		MaxClients:           0,
		BitrateKbps:          128,
		DefaultSource:        "tone",
		ToneFrequency:        440,
		RouterIdleTimeoutSec: 30,
		PCMGraceSec:          5,
		ClientTimeoutMs:      250,
		ClientBufferBytes:    64 * 1024,
		EncoderBackoffMs:     []int{1000, 2000, 4000, 8000, 10000},
		EncoderMaxRestarts:   5,
		EncoderStallThreshold: 300,
		JitterMinChunks:       16,
		JitterRecoverChunks:   8,
		JitterReadIntervalMs:  15,
	}
}

// Load builds a Config from (in increasing precedence): Default(),
// an optional YAML file at yamlPath, an optional .env file at
// envPath, then process environment variables, then args parsed as
// --flag overrides.
func Load(yamlPath, envPath string, args []string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := applyYAML(&cfg, yamlPath); err != nil {
			return Config{}, err
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("towerconfig: loading .env: %w", err)
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
		return fmt.Errorf("towerconfig: reading yaml config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("towerconfig: parsing yaml config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("TOWER_HOST"); ok {
		cfg.Host = v
	}
	if v, ok := getEnvAsInt("TOWER_PORT"); ok {
		cfg.Port = v
	}
	if v, ok := os.LookupEnv("TOWER_SOCKET_PATH"); ok {
		cfg.SocketPath = v
	}
	if v, ok := os.LookupEnv("TOWER_STATION_NAME"); ok {
		cfg.StationName = v
	}
	if v, ok := getEnvAsInt("TOWER_MAX_CLIENTS"); ok {
		cfg.MaxClients = v
	}
	if v, ok := getEnvAsInt("TOWER_BITRATE_KBPS"); ok {
		cfg.BitrateKbps = v
	}
	if v, ok := os.LookupEnv("TOWER_DEFAULT_SOURCE"); ok {
		cfg.DefaultSource = v
	}
	if v, ok := os.LookupEnv("TOWER_DEFAULT_FILE_PATH"); ok {
		cfg.DefaultFilePath = v
	}
	if v, ok := getEnvAsFloat("TOWER_TONE_FREQUENCY"); ok {
		cfg.ToneFrequency = v
	}
	if v, ok := getEnvAsInt("TOWER_ROUTER_IDLE_TIMEOUT_SEC"); ok {
		cfg.RouterIdleTimeoutSec = v
	}
	if v, ok := getEnvAsInt("TOWER_PCM_GRACE_SEC"); ok {
		cfg.PCMGraceSec = v
	}
	if v, ok := getEnvAsInt("TOWER_CLIENT_TIMEOUT_MS"); ok {
		cfg.ClientTimeoutMs = v
	}
	if v, ok := getEnvAsInt("TOWER_CLIENT_BUFFER_BYTES"); ok {
		cfg.ClientBufferBytes = v
	}
	if v, ok := getEnvAsInt("TOWER_ENCODER_MAX_RESTARTS"); ok {
		cfg.EncoderMaxRestarts = v
	}
	if v, ok := getEnvAsInt("TOWER_ENCODER_STALL_THRESHOLD_MS"); ok {
		cfg.EncoderStallThreshold = v
	}
	if v, ok := getEnvAsInt("TOWER_JITTER_MIN_CHUNKS"); ok {
		cfg.JitterMinChunks = v
	}
	if v, ok := getEnvAsInt("TOWER_JITTER_RECOVER_CHUNKS"); ok {
		cfg.JitterRecoverChunks = v
	}
	if v, ok := getEnvAsInt("TOWER_JITTER_READ_INTERVAL_MS"); ok {
		cfg.JitterReadIntervalMs = v
	}
	if v, ok := os.LookupEnv("TOWER_ENCODER_BACKOFF_MS"); ok {
		if parsed, err := parseIntList(v); err == nil {
			cfg.EncoderBackoffMs = parsed
		}
	}
}

// applyFlags parses args as the final override layer, taking
// precedence even over environment variables per spec's env-wins
// shape plus the flag layer the teacher's own config.go omits.
func applyFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("tower", pflag.ContinueOnError)

	host := fs.String("host", cfg.Host, "HTTP bind host")
	port := fs.Int("port", cfg.Port, "HTTP bind port")
	socketPath := fs.String("socket-path", cfg.SocketPath, "PCM ingress unix socket path")
	stationName := fs.String("station-name", cfg.StationName, "station name announced on the stream")
	maxClients := fs.Int("max-clients", cfg.MaxClients, "maximum concurrent stream listeners (0 = unlimited)")
	bitrate := fs.Int("bitrate-kbps", cfg.BitrateKbps, "MP3 encoder bitrate in kbps")
	defaultSource := fs.String("default-source", cfg.DefaultSource, `initial fallback source: "tone", "silence", or "file"`)
	defaultFilePath := fs.String("default-file-path", cfg.DefaultFilePath, "WAV file path when default-source=file")
	toneFrequency := fs.Float64("tone-frequency", cfg.ToneFrequency, "fallback tone frequency in Hz")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("towerconfig: parsing flags: %w", err)
	}

	cfg.Host = *host
	cfg.Port = *port
	cfg.SocketPath = *socketPath
	cfg.StationName = *stationName
	cfg.MaxClients = *maxClients
	cfg.BitrateKbps = *bitrate
	cfg.DefaultSource = *defaultSource
	cfg.DefaultFilePath = *defaultFilePath
	cfg.ToneFrequency = *toneFrequency
	return nil
}

// Validate rejects a configuration Tower cannot start with — spec.md
// treats invalid configuration (bad port, malformed bitrate, missing
// default source file) as fatal at startup only.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("towerconfig: port %d out of range", c.Port)
	}
	if c.BitrateKbps <= 0 {
		return fmt.Errorf("towerconfig: bitrate_kbps must be positive, got %d", c.BitrateKbps)
	}
	switch c.DefaultSource {
	case "tone", "silence", "file":
	default:
		return fmt.Errorf("towerconfig: default_source must be tone, silence, or file, got %q", c.DefaultSource)
	}
	if c.DefaultSource == "file" && c.DefaultFilePath == "" {
		return fmt.Errorf("towerconfig: default_file_path is required when default_source=file")
	}
	return nil
}

// RouterIdleTimeout returns RouterIdleTimeoutSec as a time.Duration.
func (c Config) RouterIdleTimeout() time.Duration {
	return time.Duration(c.RouterIdleTimeoutSec) * time.Second
}

// PCMGrace returns PCMGraceSec as a time.Duration.
func (c Config) PCMGrace() time.Duration {
	return time.Duration(c.PCMGraceSec) * time.Second
}

// ClientTimeout returns ClientTimeoutMs as a time.Duration.
func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutMs) * time.Millisecond
}

// EncoderStallThresholdDuration returns EncoderStallThreshold as a
// time.Duration.
func (c Config) EncoderStallThresholdDuration() time.Duration {
	return time.Duration(c.EncoderStallThreshold) * time.Millisecond
}

// JitterReadInterval returns JitterReadIntervalMs as a time.Duration.
func (c Config) JitterReadInterval() time.Duration {
	return time.Duration(c.JitterReadIntervalMs) * time.Millisecond
}

// EncoderBackoff returns EncoderBackoffMs converted to durations, for
// encoder.Config.Backoff.
func (c Config) EncoderBackoff() []time.Duration {
	out := make([]time.Duration, len(c.EncoderBackoffMs))
	for i, ms := range c.EncoderBackoffMs {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
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

func getEnvAsFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntList(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
