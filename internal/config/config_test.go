package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000/api/v1" {
		t.Fatalf("unexpected base url: %q", cfg.API.BaseURL)
	}
	if cfg.API.WSBaseURL != "ws://localhost:8000/ws" {
		t.Fatalf("unexpected ws base: %q", cfg.API.WSBaseURL)
	}
	if cfg.Session.HeartbeatInterval != 15*time.Second {
		t.Fatalf("unexpected heartbeat: %s", cfg.Session.HeartbeatInterval)
	}
	if cfg.Session.HistoryLimit != 100 {
		t.Fatalf("unexpected history limit: %d", cfg.Session.HistoryLimit)
	}
	if cfg.Audio.Container != "webm" || cfg.Audio.RecorderCommand != "ffmpeg" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	want := filepath.Join(home, ".config", "roomscribe", "substitutions.rules")
	if cfg.Rules.Path != want {
		t.Fatalf("unexpected rules path: %q", cfg.Rules.Path)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROOMSCRIBE_API_BASE_URL", "https://rooms.example.com/api/v2/")
	t.Setenv("ROOMSCRIBE_API_TIMEOUT", "5s")
	t.Setenv("ROOMSCRIBE_AUDIO_RECORDER_COMMAND", "my-ffmpeg")
	t.Setenv("ROOMSCRIBE_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("ROOMSCRIBE_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("ROOMSCRIBE_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("ROOMSCRIBE_AUDIO_CHANNELS", "2")
	t.Setenv("ROOMSCRIBE_SESSION_HEARTBEAT_INTERVAL", "250ms")
	t.Setenv("ROOMSCRIBE_SESSION_HISTORY_LIMIT", "20")
	t.Setenv("ROOMSCRIBE_RULES_ITERATION_LIMIT", "7")
	t.Setenv("ROOMSCRIBE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://rooms.example.com/api/v2" {
		t.Fatalf("unexpected base url: %q", cfg.API.BaseURL)
	}
	if cfg.API.WSBaseURL != "wss://rooms.example.com/ws" {
		t.Fatalf("unexpected derived ws base: %q", cfg.API.WSBaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.API.Timeout)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 {
		t.Fatalf("unexpected sample/channels: %+v", cfg.Audio)
	}
	if cfg.Session.HeartbeatInterval != 250*time.Millisecond || cfg.Session.HistoryLimit != 20 {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Rules.IterationLimit != 7 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected rules/log config: %+v %+v", cfg.Rules, cfg.Log)
	}
}

func TestLoadInvalidValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROOMSCRIBE_AUDIO_SAMPLE_RATE", "bad")
	t.Setenv("ROOMSCRIBE_AUDIO_CHANNELS", "-1")
	t.Setenv("ROOMSCRIBE_SESSION_HEARTBEAT_INTERVAL", "bad")
	t.Setenv("ROOMSCRIBE_SESSION_CHUNK_SIZE", "5")
	t.Setenv("ROOMSCRIBE_RULES_ITERATION_LIMIT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("expected audio fallbacks, got %+v", cfg.Audio)
	}
	if cfg.Session.HeartbeatInterval != 15*time.Second {
		t.Fatalf("expected heartbeat fallback, got %s", cfg.Session.HeartbeatInterval)
	}
	if cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Session.ChunkSize)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected iteration limit fallback, got %d", cfg.Rules.IterationLimit)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "roomscribe.yaml")
	contents := "api:\n  base_url: http://10.0.0.5:9000/api/v1\n  ws_base_url: ws://10.0.0.5:9001/push\nsession:\n  heartbeat_interval: 3s\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("ROOMSCRIBE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:9000/api/v1" || cfg.API.WSBaseURL != "ws://10.0.0.5:9001/push" {
		t.Fatalf("unexpected api config: %+v", cfg.API)
	}
	if cfg.Session.HeartbeatInterval != 3*time.Second {
		t.Fatalf("unexpected heartbeat: %s", cfg.Session.HeartbeatInterval)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROOMSCRIBE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestDeriveWSBase(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://localhost:8000/api/v1": "ws://localhost:8000/ws",
		"https://example.com/api":      "wss://example.com/ws",
		"http://example.com":           "ws://example.com/ws",
	}
	for in, want := range cases {
		if got := deriveWSBase(in); got != want {
			t.Fatalf("deriveWSBase(%q) = %q, want %q", in, got, want)
		}
	}
}
