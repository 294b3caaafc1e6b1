// Package config handles configuration loading and validation for voiceauthd.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon configuration, covering both the pipeline
// parameters from the feature/scoring stages and ambient daemon concerns
// (storage path, secrets, HTTP bind address).
type Config struct {
	// SampleRate is the system sample rate (Hz) all decoded audio is
	// resampled to before preprocessing.
	SampleRate int `toml:"sample_rate"`

	// NMFCC is the number of MFCC coefficients extracted per frame.
	NMFCC int `toml:"n_mfcc"`

	// MinAudioDurationS / MaxAudioDurationS bound accepted enrollment and
	// verification clip lengths.
	MinAudioDurationS float64 `toml:"min_audio_duration_s"`
	MaxAudioDurationS float64 `toml:"max_audio_duration_s"`

	// MinSpeechDurationS is the minimum cumulative speech time required
	// before a signal is considered adequately populated; below this the
	// "insufficient_speech" warning is attached.
	MinSpeechDurationS float64 `toml:"min_speech_duration_s"`

	// VerificationThreshold is the minimum comparator similarity that
	// counts as a match during Verify.
	VerificationThreshold float64 `toml:"verification_threshold"`

	// LivenessThreshold is the minimum liveness score that passes
	// anti-spoofing during Enroll and Verify.
	LivenessThreshold float64 `toml:"liveness_threshold"`

	// QualityMin is the minimum quality score an enrollment sample must
	// reach before it is accepted.
	QualityMin float64 `toml:"quality_min"`

	// PBKDF2Iterations is the key-derivation work factor for the
	// voiceprint cipher.
	PBKDF2Iterations int `toml:"pbkdf2_iterations"`

	// ProcessSecret seeds key derivation alongside the per-user ID. It is
	// never logged and should be set via VOICEAUTH_PROCESS_SECRET rather
	// than committed to a config file.
	ProcessSecret string `toml:"process_secret"`

	// AllowedFormats lists the container formats AudioDecoder accepts.
	AllowedFormats []string `toml:"allowed_formats"`

	// DBPath is where the SQLite voiceprint store lives on disk.
	DBPath string `toml:"db_path"`

	// Addr is the HTTP listen address for voiceauthd.
	Addr string `toml:"addr"`

	// FFmpegPath overrides the ffmpeg binary used to decode audio.
	FFmpegPath string `toml:"ffmpeg_path"`

	// RetentionSweepIntervalS controls how often, in seconds, the background
	// worker purges soft-deleted records past their retention window.
	RetentionSweepIntervalS int `toml:"retention_sweep_interval_s"`

	// RetentionWindowS is how long a soft-deleted record survives before
	// the sweep worker hard-deletes it.
	RetentionWindowS int `toml:"retention_window_s"`
}

// DefaultConfig returns a configuration with sensible defaults, matching
// the constants documented for the core pipeline.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	voiceauthDir := filepath.Join(home, ".voiceauth")

	return &Config{
		SampleRate:              16000,
		NMFCC:                   40,
		MinAudioDurationS:       1.0,
		MaxAudioDurationS:       10.0,
		MinSpeechDurationS:      0.5,
		VerificationThreshold:   0.85,
		LivenessThreshold:       0.70,
		QualityMin:              0.5,
		PBKDF2Iterations:        100000,
		AllowedFormats:          []string{"wav", "mp3", "m4a", "ogg"},
		DBPath:                  filepath.Join(voiceauthDir, "voiceauth.db"),
		Addr:                    ":8080",
		FFmpegPath:              "ffmpeg",
		RetentionSweepIntervalS: 3600,
		RetentionWindowS:        86400 * 30,
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voiceauth", "config.toml")
}

// Load reads configuration from path, falling back to defaults for any
// field the file omits. If path doesn't exist, returns pure defaults. Env
// vars are then applied on top, so secrets never need to live on disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Only the process
// secret and a small number of deployment knobs are overridable this way;
// pipeline tuning parameters belong in the TOML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VOICEAUTH_PROCESS_SECRET"); v != "" {
		cfg.ProcessSecret = v
	}
	if v := os.Getenv("VOICEAUTH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("VOICEAUTH_ADDR"); v != "" {
		cfg.Addr = v
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("config: sample_rate must be positive")
	}
	if c.NMFCC <= 0 {
		return errors.New("config: n_mfcc must be positive")
	}
	if c.MinAudioDurationS <= 0 || c.MaxAudioDurationS <= c.MinAudioDurationS {
		return errors.New("config: invalid audio duration bounds")
	}
	if c.VerificationThreshold < 0 || c.VerificationThreshold > 1 {
		return errors.New("config: verification_threshold must be in [0,1]")
	}
	if c.LivenessThreshold < 0 || c.LivenessThreshold > 1 {
		return errors.New("config: liveness_threshold must be in [0,1]")
	}
	if c.QualityMin < 0 || c.QualityMin > 1 {
		return errors.New("config: quality_min must be in [0,1]")
	}
	if c.PBKDF2Iterations < 1000 {
		return errors.New("config: pbkdf2_iterations is dangerously low")
	}
	if c.ProcessSecret == "" {
		return errors.New("config: process_secret is required (set VOICEAUTH_PROCESS_SECRET)")
	}
	if len(c.AllowedFormats) == 0 {
		return errors.New("config: allowed_formats must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	return nil
}

// EnsureDirectories creates the directories Config's paths live under.
func (c *Config) EnsureDirectories() error {
	dir := filepath.Dir(c.DBPath)
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0700)
}
