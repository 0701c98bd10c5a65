// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litcurate CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/corpus"
	"github.com/pdiddy/litcurate/internal/index"
	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/internal/secrets"
	"github.com/pdiddy/litcurate/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets secrets.Bundle

	logger = zap.NewNop()
)

// rootCmd is the base command for the litcurate CLI.
var rootCmd = &cobra.Command{
	Use:   "litcurate",
	Short: "Query and curate a labelled scientific literature corpus",
	Long: `litcurate stores papers retrieved from a bibliographic source together
with the labels and entity spans a classifier predicted for them, and
answers the dashboard's questions over that corpus: label frequencies,
cross-task breakdowns, filtered paper lists, exports and insight views.

Feeds are loaded with import; serve exposes the same operations as a JSON
API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if logger, err = logging.New(cfg.Logging); err != nil {
			return err
		}

		loadedSecrets, err = secrets.Load(".secrets", logger)
		if err != nil {
			return err
		}
		if len(loadedSecrets) > 0 {
			logger.Debug("secrets loaded", zap.Strings("keys", loadedSecrets.Names()))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litcurate.yaml or ~/.config/litcurate/litcurate.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")

	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("store.driver", string(types.DriverSQLite))
	viper.SetDefault("store.path", "litcurate.db")
	viper.SetDefault("store.dsn", "")
	viper.SetDefault("store.busy_retries", 5)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")

	viper.SetDefault("session.backend", string(types.SessionMemory))
	viper.SetDefault("session.redis_addr", "localhost:6379")
	viper.SetDefault("session.redis_password", "")
	viper.SetDefault("session.redis_db", 0)
	viper.SetDefault("session.ttl", "24h")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stderr")

	viper.SetDefault("taxonomy.file", "")
	viper.SetDefault("export.label_separator", ", ")
}

func initConfig() {
	envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envFile, err)
		}
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litcurate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litcurate"))
		}
	}

	viper.SetEnvPrefix("LITCURATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged configuration and fills credentials from
// .secrets/.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	loadedSecrets.Apply(&cfg)
	return cfg, nil
}

// openCorpus opens the store and the index over it.
func openCorpus() (*corpus.Store, *index.Index, types.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, cfg, err
	}
	display, err := index.LoadDisplay(cfg.Taxonomy.File)
	if err != nil {
		return nil, nil, cfg, err
	}
	store, err := corpus.Open(cfg.Store, logger)
	if err != nil {
		return nil, nil, cfg, err
	}
	return store, index.New(store, logger, display), cfg, nil
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
