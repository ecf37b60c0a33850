// Package main provides the entry point for the chatvoice CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "chatvoice",
		Short: "Read chat answers aloud, offline",
		Long: paragraph(
			fmt.Sprintf("\nRead chat answers aloud with %s, falling back to the system voice when needed.", keyword("offline synthesized voices")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig()
		},
	}
)

// loadConfig reads the selected config file and resolves cfg.
func loadConfig() error {
	if configFile != "" && configFile != viper.ConfigFileUsed() {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c
	log.Debug("Configuration loaded", "file", viper.ConfigFileUsed(), "voice", cfg.Voice, "rate", cfg.Rate, "cache", cfg.Cache.Path)
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("voice", "V", "", "voice: alloy, echo, fable, onyx, nova or shimmer")
	rootCmd.PersistentFlags().Float64P("rate", "r", 0, "speaking rate between 0.5 and 2.0")

	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("rate", rootCmd.PersistentFlags().Lookup("rate"))

	rootCmd.AddCommand(speakCmd, voicesCmd, statsCmd, cacheCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.Setup(viper.GetViper())
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], config.AppName+".yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		configFile = ""
	}
}
