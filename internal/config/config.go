package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "ROOMSCRIBE"

// Config stores runtime configuration for the room client.
type Config struct {
	API     APIConfig
	Audio   AudioConfig
	Session SessionConfig
	Rules   RulesConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL   string
	WSBaseURL string
	Timeout   time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	Container       string
}

type SessionConfig struct {
	HeartbeatInterval time.Duration
	HistoryLimit      int
	ChunkSize         int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load resolves configuration from ROOMSCRIBE_* variables, an optional YAML
// file named by ROOMSCRIBE_CONFIG, and defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.ws_base_url", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("audio.recorder_command", "ffmpeg")
	v.SetDefault("audio.input_format", "pulse")
	v.SetDefault("audio.input_device", "default")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.container", "webm")
	v.SetDefault("session.heartbeat_interval", "15s")
	v.SetDefault("session.history_limit", 100)
	v.SetDefault("session.chunk_size", 4096)
	v.SetDefault("rules.path", filepath.Join(home, ".config", "roomscribe", "substitutions.rules"))
	v.SetDefault("rules.iteration_limit", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if path := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := Config{
		API: APIConfig{
			BaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("api.base_url")), "/"),
			WSBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("api.ws_base_url")), "/"),
			Timeout:   v.GetDuration("api.timeout"),
		},
		Audio: AudioConfig{
			RecorderCommand: strings.TrimSpace(v.GetString("audio.recorder_command")),
			InputFormat:     strings.TrimSpace(v.GetString("audio.input_format")),
			InputDevice:     strings.TrimSpace(v.GetString("audio.input_device")),
			SampleRate:      v.GetInt("audio.sample_rate"),
			Channels:        v.GetInt("audio.channels"),
			Container:       strings.TrimSpace(v.GetString("audio.container")),
		},
		Session: SessionConfig{
			HeartbeatInterval: v.GetDuration("session.heartbeat_interval"),
			HistoryLimit:      v.GetInt("session.history_limit"),
			ChunkSize:         v.GetInt("session.chunk_size"),
		},
		Rules: RulesConfig{
			Path:           strings.TrimSpace(v.GetString("rules.path")),
			IterationLimit: v.GetInt("rules.iteration_limit"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api/v1"
	}
	if cfg.API.WSBaseURL == "" {
		cfg.API.WSBaseURL = deriveWSBase(cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Audio.RecorderCommand == "" {
		cfg.Audio.RecorderCommand = "ffmpeg"
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.Container == "" {
		cfg.Audio.Container = "webm"
	}
	if cfg.Session.HeartbeatInterval <= 0 {
		cfg.Session.HeartbeatInterval = 15 * time.Second
	}
	if cfg.Session.HistoryLimit <= 0 {
		cfg.Session.HistoryLimit = 100
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}

	return cfg, nil
}

// deriveWSBase maps http://host/api/v1 to ws://host/ws, the server's push
// channel mount point.
func deriveWSBase(apiBase string) string {
	base := apiBase
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	if idx := strings.Index(base, "/api/"); idx >= 0 {
		base = base[:idx]
	} else if strings.HasSuffix(base, "/api") {
		base = strings.TrimSuffix(base, "/api")
	}
	return strings.TrimRight(base, "/") + "/ws"
}
