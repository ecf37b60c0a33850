package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	c.Language = "en"
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Cache.Retention != 14*24*time.Hour {
		t.Errorf("retention = %v, want 14 days", c.Cache.Retention)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"rate too low", func(c *Config) { c.Rate = 0.1 }, "rate"},
		{"rate too high", func(c *Config) { c.Rate = 3 }, "rate"},
		{"sample rate", func(c *Config) { c.SampleRate = 100 }, "sample_rate"},
		{"retention", func(c *Config) { c.Cache.Retention = 0 }, "cache.retention"},
		{"memory", func(c *Config) { c.Cache.MemoryMB = -1 }, "cache.memory_mb"},
		{"word limit", func(c *Config) { c.Synthesis.ProsodyWordLimit = -5 }, "prosody_word_limit"},
		{"backend", func(c *Config) { c.Fallback.Backend = "festival" }, "fallback.backend"},
		{"language", func(c *Config) { c.Language = "not a tag!" }, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	c := Default()
	c.Rate = 9
	c.SampleRate = 1
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "rate") || !strings.Contains(err.Error(), "sample_rate") {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "chatvoice.yml")
	t.Setenv("CHATVOICE_RATE", "1.5")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "de_DE.UTF-8")

	var buf bytes.Buffer
	c := Default()
	c.Voice = "Nova"
	c.Cache.Path = filepath.Join(dir, "audio.db")
	c.Cache.Retention = 48 * time.Hour
	if err := Write(&buf, c); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "retention: 48h0m0s") {
		t.Errorf("retention not written as a duration:\n%s", buf.String())
	}
	writeFile(t, cfgPath, buf.Bytes())

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(cfgPath)
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	got, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Voice != "nova" {
		t.Errorf("voice = %q, want nova", got.Voice)
	}
	if got.Rate != 1.5 {
		t.Errorf("rate = %v, want env override 1.5", got.Rate)
	}
	if got.Cache.Retention != 48*time.Hour {
		t.Errorf("retention = %v", got.Cache.Retention)
	}
	if got.Language != "de-DE" {
		t.Errorf("language = %q, want de-DE", got.Language)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("fallback.backend", "festival")
	v.Set("language", "en")
	if _, err := Load(v); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestSystemLanguage(t *testing.T) {
	tests := []struct {
		lcAll, lang string
		want        string
	}{
		{"", "en_GB.UTF-8", "en-GB"},
		{"fr_FR@euro", "en_US", "fr-FR"},
		{"C", "", "en"},
		{"", "", "en"},
	}
	for _, tt := range tests {
		t.Setenv("LC_ALL", tt.lcAll)
		t.Setenv("LC_MESSAGES", "")
		t.Setenv("LANG", tt.lang)
		if got := SystemLanguage(); got != tt.want {
			t.Errorf("SystemLanguage() with LC_ALL=%q LANG=%q = %q, want %q", tt.lcAll, tt.lang, got, tt.want)
		}
	}
}
