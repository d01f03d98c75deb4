package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carprice/api"
	"carprice/metrics"
)

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.ListenAddr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides listen_addr)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	collector := metrics.NewCollector()
	svc, err := a.buildService(collector)
	if err != nil {
		return err
	}

	opts := []api.HandlerOption{
		api.WithMetrics(collector.Handler()),
		api.WithMaxUpload(a.cfg.MaxUploadMB << 20),
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, api.WithStore(store))
	}

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           api.NewHandler(svc, a.logger, opts...).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("=== carprice listening on %s ===", a.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
