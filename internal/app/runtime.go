// Package app assembles the bot's services and drives their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/dispatch"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
)

// BotRuntime: every long running part of the bot
type BotRuntime struct {
	Config *config.Config
	Logger *slog.Logger

	Consumer    *gateway.Consumer
	Router      *dispatch.Router
	Scheduler   *campaign.Scheduler
	Reconnector *gateway.Reconnector
	HTTPServer  *http.Server

	cleanup func()
}

// Close releases connections (Valkey, archive).
func (r *BotRuntime) Close() {
	if r != nil && r.cleanup != nil {
		r.cleanup()
	}
}

// Start launches the event pipeline, the scheduler and the HTTP server.
// Fatal server errors are reported on errCh.
func (r *BotRuntime) Start(ctx context.Context, errCh chan<- error) {
	r.Router.Start()
	r.Consumer.Start(ctx)
	r.Logger.Info("GATEWAY_CONSUMER_STARTED", slog.String("stream", r.Config.Gateway.EventStreamKey))

	if r.Config.Schedule.Disabled {
		r.Logger.Warn("CAMPAIGN_SCHEDULER_DISABLED")
	} else {
		r.Scheduler.Start(ctx)
	}

	if r.HTTPServer != nil {
		go func() {
			if err := r.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
		r.Logger.Info("HTTP_SERVER_STARTED", slog.String("addr", r.HTTPServer.Addr))
	}
}

// Shutdown stops accepting work, then waits for running jobs and handlers.
func (r *BotRuntime) Shutdown(ctx context.Context) {
	if r.HTTPServer != nil {
		if err := r.HTTPServer.Shutdown(ctx); err != nil {
			r.Logger.Error("HTTP_SERVER_SHUTDOWN_FAILED", slog.Any("error", err))
		}
	}
	r.Reconnector.Stop()
	r.Scheduler.Stop()
	r.Router.Stop()
}

// Run starts the runtime and blocks until SIGINT/SIGTERM or a fatal server error.
func (r *BotRuntime) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	r.Start(ctx, errCh)
	r.Logger.Info("BOT_STARTED", slog.String("name", r.Config.Bot.Name), slog.String("version", r.Config.Version))

	select {
	case sig := <-sigCh:
		r.Logger.Info("SHUTDOWN_SIGNAL", slog.String("signal", sig.String()))
	case err := <-errCh:
		r.Logger.Error("SERVER_ERROR", slog.Any("error", err))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.AppTimeout.Shutdown)
	defer shutdownCancel()
	r.Shutdown(shutdownCtx)
	r.Logger.Info("SHUTDOWN_COMPLETE")
}
