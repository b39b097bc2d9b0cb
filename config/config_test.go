package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if got := cfg.HandshakeTimeout(); got != 5*time.Second {
		t.Errorf("HandshakeTimeout() = %v, want 5s", got)
	}
	if got := cfg.BroadcastInterval(); got != 33*time.Millisecond {
		t.Errorf("BroadcastInterval() = %v, want 33ms", got)
	}
	if cfg.SkipSeconds != 10 {
		t.Errorf("SkipSeconds = %v, want 10", cfg.SkipSeconds)
	}
	if got := cfg.ResumeTTL(); got != 720*time.Hour {
		t.Errorf("ResumeTTL() = %v, want 720h", got)
	}
	if !cfg.AlwaysOnTop() {
		t.Error("AlwaysOnTop() = false, want true by default")
	}
}

func TestLoadFrom_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"handshake_timeout_ms": 8000, "audience_always_on_top": false}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if got := cfg.HandshakeTimeout(); got != 8*time.Second {
		t.Errorf("HandshakeTimeout() = %v, want 8s", got)
	}
	if cfg.AlwaysOnTop() {
		t.Error("AlwaysOnTop() = true, want false")
	}
	if cfg.SkipSeconds != DefaultSkipSeconds {
		t.Errorf("SkipSeconds = %v, want default", cfg.SkipSeconds)
	}
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() error = nil, want error")
	}
}

func TestDefault_KeepsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want error")
	}

	cfg := Default()
	if err := cfg.SetSkipSeconds(15); !errors.Is(err, ErrNotPersisted) {
		t.Errorf("SetSkipSeconds() error = %v, want ErrNotPersisted", err)
	}
	if cfg.SkipSeconds != 15 {
		t.Errorf("SkipSeconds = %v, want 15 in memory", cfg.SkipSeconds)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "{" {
		t.Errorf("config file = %q, want it left untouched", data)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.SetHandshakeTimeout(7 * time.Second); err != nil {
		t.Fatalf("SetHandshakeTimeout() error = %v", err)
	}
	if err := cfg.SetSkipSeconds(15); err != nil {
		t.Fatalf("SetSkipSeconds() error = %v", err)
	}
	if err := cfg.SetAudienceAlwaysOnTop(false); err != nil {
		t.Fatalf("SetAudienceAlwaysOnTop() error = %v", err)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got := reloaded.HandshakeTimeout(); got != 7*time.Second {
		t.Errorf("HandshakeTimeout() = %v, want 7s", got)
	}
	if reloaded.SkipSeconds != 15 {
		t.Errorf("SkipSeconds = %v, want 15", reloaded.SkipSeconds)
	}
	if reloaded.AlwaysOnTop() {
		t.Error("AlwaysOnTop() = true, want false")
	}
}

func TestSetters_Validate(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if err := cfg.SetHandshakeTimeout(100 * time.Millisecond); err == nil {
		t.Error("SetHandshakeTimeout(100ms) error = nil, want error")
	}
	if err := cfg.SetSkipSeconds(0); err == nil {
		t.Error("SetSkipSeconds(0) error = nil, want error")
	}
}
