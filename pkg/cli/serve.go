package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/schedops/ediscope/pkg/cli/config"
	controller "github.com/schedops/ediscope/pkg/controller/http"
	"github.com/schedops/ediscope/pkg/usecase"
)

func cmdServe() *cli.Command {
	var (
		serverCfg   config.Server
		scheduleCfg config.Schedule
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: joinFlags(serverCfg.Flags(), scheduleCfg.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			policy, err := scheduleCfg.Configure()
			if err != nil {
				return err
			}

			logger.Info("Starting ediscope server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("schedule", scheduleCfg),
			)

			handler := controller.NewReportHandler(policy,
				usecase.NewCoverage(policy),
				usecase.NewFluctuation(),
				usecase.NewCritical(),
			)

			server, err := controller.NewServer(ctx, serverCfg.Addr, handler)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
