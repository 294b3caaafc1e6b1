package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsInvalidWithoutSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to fail without a process secret")
	}

	cfg.ProcessSecret = "a-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil once process_secret is set", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != DefaultConfig().SampleRate {
		t.Errorf("SampleRate = %d, want default %d", cfg.SampleRate, DefaultConfig().SampleRate)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
sample_rate = 8000
n_mfcc = 20
addr = ":9090"
`
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", cfg.SampleRate)
	}
	if cfg.NMFCC != 20 {
		t.Errorf("NMFCC = %d, want 20", cfg.NMFCC)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
}

func TestApplyEnvOverridesProcessSecret(t *testing.T) {
	t.Setenv("VOICEAUTH_PROCESS_SECRET", "from-env")
	t.Setenv("VOICEAUTH_ADDR", ":7777")

	cfg := DefaultConfig()
	applyEnv(cfg)

	if cfg.ProcessSecret != "from-env" {
		t.Errorf("ProcessSecret = %q, want from-env", cfg.ProcessSecret)
	}
	if cfg.Addr != ":7777" {
		t.Errorf("Addr = %q, want :7777", cfg.Addr)
	}
}

func TestValidateRejectsBadDurationBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProcessSecret = "x"
	cfg.MinAudioDurationS = 10
	cfg.MaxAudioDurationS = 5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject max < min audio duration")
	}
}

func TestValidateRejectsLowPBKDF2Iterations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProcessSecret = "x"
	cfg.PBKDF2Iterations = 10

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject a dangerously low iteration count")
	}
}

func TestEnsureDirectoriesCreatesParent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "nested", "voiceauth.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Fatalf("expected nested directory to exist: %v", err)
	}
}
