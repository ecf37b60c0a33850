package tts

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/audio"
	"github.com/dgnsrekt/chatvoice/internal/cache"
	"github.com/dgnsrekt/chatvoice/internal/config"
	"github.com/dgnsrekt/chatvoice/internal/native"
	"github.com/dgnsrekt/chatvoice/internal/synth"
	"golang.org/x/sync/errgroup"
)

// Open builds an Engine from cfg. The audio output, the cache and the
// native engine start in parallel. None of them is required: a failure is
// logged and the engine runs without that component. Open only fails on an
// invalid cfg or a cancelled ctx.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	s := synth.New(synth.Options{
		SampleRate:       cfg.SampleRate,
		Prosody:          cfg.Synthesis.Prosody,
		ProsodyWordLimit: cfg.Synthesis.ProsodyWordLimit,
		Logger:           logger.WithPrefix("synth"),
	})

	var (
		player *audio.Player
		store  *cache.Store
		host   native.Engine = native.None{}
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		pc := audio.DefaultPlayerConfig()
		pc.SampleRate = cfg.SampleRate
		p, err := audio.NewPlayer(pc)
		if err != nil {
			logger.Warn("audio output unavailable, using native speech only", "err", err, "stage", StageStartup, "kind", KindRecoverable)
			return nil
		}
		player = p
		return nil
	})

	eg.Go(func() error {
		if !cfg.Cache.Enabled {
			return nil
		}
		st, err := cache.Open(egCtx, cache.Options{
			Path:           cfg.Cache.Path,
			Retention:      cfg.Cache.Retention,
			Compress:       cfg.Cache.Compress,
			MemoryCapacity: int64(cfg.Cache.MemoryMB) << 20,
			Logger:         logger.WithPrefix("cache"),
		})
		if err != nil {
			logger.Warn("audio cache unavailable", "err", err, "stage", StageStartup, "kind", KindRecoverable)
			return nil
		}
		store = st
		return nil
	})

	eg.Go(func() error {
		if !cfg.Fallback.Native {
			return nil
		}
		host = native.NewExec(native.ExecOptions{
			Backend: cfg.Fallback.Backend,
			Logger:  logger.WithPrefix("native"),
		})
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		closeAll(player, store)
		return nil, fmt.Errorf("start speech engine: %w", err)
	}

	base := []Option{
		WithLogger(logger.WithPrefix("tts")),
		WithNative(host),
		WithTone(cfg.Fallback.Tone),
		WithSampleRate(cfg.SampleRate),
		WithLanguage(cfg.Language),
		WithSettings(Settings{
			Enabled:    cfg.Enabled,
			Voice:      cfg.Voice,
			SpeechRate: fmt.Sprintf("%g", cfg.Rate),
		}),
	}
	if player != nil {
		base = append(base, WithPlayer(player), withCloser(player))
	}
	if store != nil {
		base = append(base, WithCache(store), withCloser(store))
	}
	return New(s, append(base, opts...)...), nil
}

func closeAll(player *audio.Player, store *cache.Store) {
	if player != nil {
		_ = player.Close()
	}
	if store != nil {
		_ = store.Close()
	}
}
