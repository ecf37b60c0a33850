// Package config defines chatvoice's settings and loads them with viper from
// chatvoice.yml, CHATVOICE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// AppName names the config file, env prefix and app directories.
const AppName = "chatvoice"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Rate bounds shared with the settings adapter.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// Config is the complete application configuration.
type Config struct {
	// Enabled turns speech on. When false speak requests are ignored.
	Enabled  bool    `yaml:"enabled" mapstructure:"enabled"`
	Voice    string  `yaml:"voice" mapstructure:"voice"`
	Rate     float64 `yaml:"rate" mapstructure:"rate"`
	Language string  `yaml:"language" mapstructure:"language"`
	// SampleRate is the output device rate; rendering happens at this rate.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`

	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`
	Fallback  FallbackConfig  `yaml:"fallback" mapstructure:"fallback"`
}

// CacheConfig controls the persistent clip cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Path is the SQLite file. Empty uses the user cache directory.
	Path      string        `yaml:"path" mapstructure:"path"`
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	Compress  bool          `yaml:"compress" mapstructure:"compress"`
	// MemoryMB bounds the in-process layer in front of the database.
	MemoryMB int `yaml:"memory_mb" mapstructure:"memory_mb"`
}

// SynthesisConfig tunes offline rendering.
type SynthesisConfig struct {
	Prosody          bool `yaml:"prosody" mapstructure:"prosody"`
	ProsodyWordLimit int  `yaml:"prosody_word_limit" mapstructure:"prosody_word_limit"`
}

// FallbackConfig controls the last rungs of the fallback ladder.
type FallbackConfig struct {
	// Native enables the host speech program.
	Native bool `yaml:"native" mapstructure:"native"`
	// Backend is auto, espeak-ng, espeak, say or none.
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Tone plays a short beep when no native engine is present.
	Tone bool `yaml:"tone" mapstructure:"tone"`
}

var backends = []string{"auto", "espeak-ng", "espeak", "say", "none"}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Enabled:    true,
		Voice:      "alloy",
		Rate:       1.0,
		Language:   "",
		SampleRate: 44100,
		Cache: CacheConfig{
			Enabled:   true,
			Retention: 14 * 24 * time.Hour,
			Compress:  true,
			MemoryMB:  16,
		},
		Synthesis: SynthesisConfig{
			Prosody:          true,
			ProsodyWordLimit: 400,
		},
		Fallback: FallbackConfig{
			Native:  true,
			Backend: "auto",
			Tone:    false,
		},
	}
}

// SetDefaults registers every key with v so environment variables bind and
// unset keys keep their defaults.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("voice", d.Voice)
	v.SetDefault("rate", d.Rate)
	v.SetDefault("language", d.Language)
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.retention", d.Cache.Retention)
	v.SetDefault("cache.compress", d.Cache.Compress)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("synthesis.prosody", d.Synthesis.Prosody)
	v.SetDefault("synthesis.prosody_word_limit", d.Synthesis.ProsodyWordLimit)
	v.SetDefault("fallback.native", d.Fallback.Native)
	v.SetDefault("fallback.backend", d.Fallback.Backend)
	v.SetDefault("fallback.tone", d.Fallback.Tone)
}

// Setup points v at the default config locations and environment. The
// directories are searched in order; CHATVOICE_CONFIG_HOME and
// XDG_CONFIG_HOME come first when set.
func Setup(v *viper.Viper) ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("find configuration directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("CHATVOICE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return dirs, nil
}

// Load decodes v into a Config, fills derived values and validates it.
func Load(v *viper.Viper) (Config, error) {
	c := Default()
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.resolve(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// resolve expands ~ in paths and fills the cache path and language.
func (c *Config) resolve() error {
	if c.Cache.Path == "" {
		p, err := DefaultCachePath()
		if err != nil {
			return err
		}
		c.Cache.Path = p
	}
	p, err := homedir.Expand(c.Cache.Path)
	if err != nil {
		return fmt.Errorf("%w: cache.path: %v", ErrInvalidConfig, err)
	}
	c.Cache.Path = p
	if c.Language == "" {
		c.Language = SystemLanguage()
	}
	c.Voice = strings.ToLower(strings.TrimSpace(c.Voice))
	c.Fallback.Backend = strings.ToLower(strings.TrimSpace(c.Fallback.Backend))
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Rate < MinRate || c.Rate > MaxRate {
		errs = append(errs, fmt.Errorf("rate must be between %.1f and %.1f, got %.2f", MinRate, MaxRate, c.Rate))
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.SampleRate))
	}
	if c.Cache.Retention <= 0 {
		errs = append(errs, fmt.Errorf("cache.retention must be positive, got %s", c.Cache.Retention))
	}
	if c.Cache.MemoryMB < 0 {
		errs = append(errs, fmt.Errorf("cache.memory_mb must not be negative, got %d", c.Cache.MemoryMB))
	}
	if c.Synthesis.ProsodyWordLimit < 0 {
		errs = append(errs, fmt.Errorf("synthesis.prosody_word_limit must not be negative, got %d", c.Synthesis.ProsodyWordLimit))
	}
	if !validBackend(c.Fallback.Backend) {
		errs = append(errs, fmt.Errorf("fallback.backend must be one of %s, got %q", strings.Join(backends, ", "), c.Fallback.Backend))
	}
	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			errs = append(errs, fmt.Errorf("language %q: %v", c.Language, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validBackend(b string) bool {
	for _, v := range backends {
		if b == v {
			return true
		}
	}
	return false
}

// DefaultCachePath returns the database path in the user cache directory.
func DefaultCachePath() (string, error) {
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio.db"), nil
}

// SystemLanguage derives a BCP 47 tag from LC_ALL, LC_MESSAGES or LANG,
// falling back to "en".
func SystemLanguage() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(k)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v, _, _ = strings.Cut(v, ".")
		v, _, _ = strings.Cut(v, "@")
		if t, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return t.String()
		}
	}
	return "en"
}
