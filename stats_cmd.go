package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audio cache and usage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		sum, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(renderStats(sum, cfg.Cache.Path))
		return nil
	},
}

func openStore(ctx context.Context) (*cache.Store, error) {
	return cache.Open(ctx, cache.Options{
		Path:      cfg.Cache.Path,
		Retention: cfg.Cache.Retention,
		Compress:  cfg.Cache.Compress,
		Logger:    log.Default().WithPrefix("cache"),
	})
}

func renderStats(s cache.Summary, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", heading("Cache"), faint(path))
	fmt.Fprintf(&b, "  %s clips, %s", humanize.Comma(s.Entries), humanize.Bytes(uint64(max(s.StoredBytes, 0))))
	if s.Expired > 0 {
		fmt.Fprintf(&b, ", %s expired", humanize.Comma(s.Expired))
	}
	b.WriteString("\n")
	if !s.Oldest.IsZero() {
		fmt.Fprintf(&b, "  oldest %s, newest %s\n", humanize.Time(s.Oldest), humanize.Time(s.Newest))
	}

	fmt.Fprintf(&b, "\n%s\n", heading("Usage"))
	if s.Requests == 0 {
		b.WriteString(faint("  nothing spoken yet") + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  %s requests, %s from cache (%.0f%%)\n",
		humanize.Comma(s.Requests), humanize.Comma(s.Served()), s.HitRate()*100)
	for _, v := range s.Voices {
		fmt.Fprintf(&b, "  %s %s requests, %s characters\n",
			keyword(fmt.Sprintf("%-8s", v.Voice)), humanize.Comma(v.Requests), humanize.Comma(v.Chars))
	}

	if len(s.Days) > 0 {
		fmt.Fprintf(&b, "\n%s\n", heading("Recent days"))
		for _, d := range s.Days {
			fmt.Fprintf(&b, "  %s %s\n", d.Date, humanize.Comma(d.Requests))
		}
	}
	return b.String()
}
