package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

var keyComments = map[string]string{
	"enabled":     "speak responses aloud",
	"voice":       "alloy, echo, fable, onyx, nova or shimmer",
	"rate":        "speaking rate, 0.5 to 2.0",
	"language":    "BCP 47 tag used to pick a native voice (default: from $LANG)",
	"sample_rate": "output device sample rate in Hz",
	"cache":       "persistent audio cache (path defaults to the user cache directory)",
	"synthesis":   "offline rendering; prosody is skipped above prosody_word_limit words",
	"fallback":    "native speech program (auto, espeak-ng, espeak, say, none) and failure tone",
}

// fileConfig mirrors Config with durations as strings so the file stays
// readable.
type fileConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Voice      string  `yaml:"voice"`
	Rate       float64 `yaml:"rate"`
	Language   string  `yaml:"language"`
	SampleRate int     `yaml:"sample_rate"`
	Cache      struct {
		Enabled   bool   `yaml:"enabled"`
		Path      string `yaml:"path"`
		Retention string `yaml:"retention"`
		Compress  bool   `yaml:"compress"`
		MemoryMB  int    `yaml:"memory_mb"`
	} `yaml:"cache"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Fallback  FallbackConfig  `yaml:"fallback"`
}

// Write encodes c as commented YAML.
func Write(w io.Writer, c Config) error {
	f := fileConfig{
		Enabled:    c.Enabled,
		Voice:      c.Voice,
		Rate:       c.Rate,
		Language:   c.Language,
		SampleRate: c.SampleRate,
		Synthesis:  c.Synthesis,
		Fallback:   c.Fallback,
	}
	f.Cache.Enabled = c.Cache.Enabled
	f.Cache.Path = c.Cache.Path
	f.Cache.Retention = c.Cache.Retention.String()
	f.Cache.Compress = c.Cache.Compress
	f.Cache.MemoryMB = c.Cache.MemoryMB

	var doc yaml.Node
	if err := doc.Encode(f); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	// mapping content alternates key and value nodes
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if c, ok := keyComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = c
		}
	}
	doc.HeadComment = "chatvoice configuration"

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return enc.Close()
}
