package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpDelivery "github.com/gearmatch/ratingsync/internal/delivery/http"
	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the match review API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger

			hist, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			var historyRepo domain.HistoryRepository
			if hist != nil {
				defer hist.Close()
				historyRepo = hist
			}

			service := ctx.newReconcileService(nil, ctx.newCatalogStore(), hist)
			handler := httpDelivery.NewHandler(service, historyRepo, ctx.categoryInfos())
			router := httpDelivery.SetupRouter(cfg, handler, logger)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", server.Addr).
					Str("environment", cfg.Server.Environment).
					Msg("review API listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			logger.Info().Msg("shutting down review API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
