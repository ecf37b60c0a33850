package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pruneOlderThan time.Duration

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Maintain the audio cache",
		Args:  cobra.NoArgs,
	}

	cachePruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete expired clips",
		Long:  paragraph("\nDelete clips older than the retention window, or older than --older-than. Expired clips are never played, pruning only reclaims space."),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			n, err := store.Prune(cmd.Context(), pruneOlderThan)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d clips.\n", n)
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}

	cachePathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the cache database location",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Println(cfg.Cache.Path)
		},
	}
)

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "age limit (default: the configured retention)")
	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd, cachePathCmd)
}
