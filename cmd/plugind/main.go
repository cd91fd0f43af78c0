package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/pkg/bells"
	"github.com/interledger-go/plugin-bells/pkg/config"
	"github.com/interledger-go/plugin-bells/pkg/plugin"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Five Bells ledger plugin",
		zap.String("prefix", cfg.Plugin.Prefix),
		zap.String("account", cfg.Plugin.Account),
	)

	p := plugin.New(pluginConfig(cfg), plugin.WithLogger(logger))
	subscribeAll(p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to ledger", zap.Error(err))
	}
	defer p.Disconnect()

	var server *http.Server
	if cfg.Monitoring.Enabled {
		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if !p.IsConnected() {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("disconnected"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", promhttp.Handler())

		server = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Monitoring.Host, cfg.Monitoring.Port),
			Handler: r,
		}
		go func() {
			logger.Info("Monitoring endpoint listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Monitoring server failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

func pluginConfig(cfg *config.Config) plugin.Config {
	pc := plugin.Config{
		Prefix:    cfg.Plugin.Prefix,
		Account:   cfg.Plugin.Account,
		Username:  cfg.Plugin.Username,
		Password:  cfg.Plugin.Password,
		Connector: cfg.Plugin.Connector,
	}
	if cfg.Plugin.Autofund != nil {
		pc.Autofund = &plugin.AutofundConfig{
			Connector:     cfg.Plugin.Autofund.Connector,
			AdminUsername: cfg.Plugin.Autofund.AdminUsername,
			AdminPassword: cfg.Plugin.Autofund.AdminPassword,
			Balance:       cfg.Plugin.Autofund.Balance,
		}
	}
	return pc
}

// subscribeAll logs every lifecycle event. This daemon is a monitoring
// harness; applications embed pkg/plugin directly and register their own
// handlers.
func subscribeAll(p *plugin.Plugin, logger *zap.Logger) {
	kinds := []plugin.EventKind{
		plugin.IncomingPrepare, plugin.OutgoingPrepare,
		plugin.IncomingTransfer, plugin.OutgoingTransfer,
		plugin.IncomingFulfill, plugin.OutgoingFulfill,
		plugin.IncomingCancel, plugin.OutgoingCancel,
		plugin.IncomingReject, plugin.OutgoingReject,
	}
	for _, kind := range kinds {
		kind := kind
		p.Subscribe(kind, func(transfer *bells.PluginTransfer, detail string) {
			logger.Info("Transfer lifecycle event",
				zap.String("event", kind.String()),
				zap.String("id", transfer.ID),
				zap.String("account", transfer.Account),
				zap.String("amount", transfer.Amount),
				zap.String("detail", detail),
			)
		})
	}
}
