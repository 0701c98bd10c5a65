// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/insight"
	"github.com/pdiddy/litcurate/internal/results"
	"github.com/pdiddy/litcurate/internal/server"
	"github.com/pdiddy/litcurate/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	Long: `Serve opens the corpus and exposes taxonomy, frequency, filter, result,
export and insight operations over HTTP under /api/v1. Per-session filter
state lives in memory or in Redis (session.backend). Prometheus metrics
are served at /metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ix, cfg, err := openCorpus()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := ix.Refresh(ctx); err != nil {
		return err
	}
	reg, err := ix.Registry(ctx)
	if err != nil {
		return err
	}
	logger.Info("taxonomy loaded", zap.Int("tasks", len(reg.All())))

	sessions, err := session.Open(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	srv := server.New(cfg.Server, server.Deps{
		Index:    ix,
		Results:  results.NewProvider(store, ix, logger, cfg.Export),
		Insights: insight.NewService(ix, logger),
		Sessions: sessions,
		Log:      logger,
	})
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().String("session-backend", "", "session store: memory or redis (overrides session.backend)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("session.backend", serveCmd.Flags().Lookup("session-backend"))

	rootCmd.AddCommand(serveCmd)
}
