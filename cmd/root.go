// Package cmd wires configuration, the pipeline artifact and the prediction
// service into the carprice command line.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"carprice/config"
	"carprice/metrics"
	"carprice/services"
	"carprice/storage"
	"carprice/utils"
)

// NewRootCmd builds the carprice command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "carprice",
		Short:         "Used-car price prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "carprice.yaml", "optional YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newPredictCmd(&configPath),
		newFitCmd(&configPath),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := utils.NewLoggerWithOptions(utils.LogOptions{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	return &app{cfg: cfg, logger: logger}, nil
}

// buildService loads the artifact and wires the prediction service.
func (a *app) buildService(collector *metrics.Collector) (*services.PredictionService, error) {
	transformer, model, err := storage.LoadArtifact(a.cfg.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", a.cfg.ArtifactPath, err)
	}
	var opts []services.Option
	if collector != nil {
		opts = append(opts, services.WithObserver(collector))
	}
	svc, err := services.NewPredictionService(transformer, model, a.logger.With("service"), opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Loaded pipeline %s (%d known brands, threshold %d)",
		a.cfg.ArtifactPath, len(transformer.Statistics().KnownBrands()), transformer.Statistics().BrandMinCount())
	return svc, nil
}

// openStore connects to PostgreSQL when persistence is enabled, else
// returns nil.
func (a *app) openStore() (*storage.PostgresStore, error) {
	if !a.cfg.Postgres.Enabled {
		return nil, nil
	}
	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, Logger: a.logger}
	store, err := storage.NewPostgresStore(a.cfg.DSN(), retry)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Connected to PostgreSQL at %s:%d", a.cfg.Postgres.Host, a.cfg.Postgres.Port)
	return store, nil
}
