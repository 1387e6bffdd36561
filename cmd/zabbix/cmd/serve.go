package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/muammer-kilic/zabbix/internal/api"
	"github.com/muammer-kilic/zabbix/internal/config"
	"github.com/muammer-kilic/zabbix/internal/diag"
	"github.com/muammer-kilic/zabbix/internal/historycache"
	"github.com/muammer-kilic/zabbix/internal/logging"
	"github.com/muammer-kilic/zabbix/internal/selfmon"
	"github.com/muammer-kilic/zabbix/internal/storage"
	"github.com/muammer-kilic/zabbix/internal/valuecache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnostics HTTP server",
	Long: `Start the diagnostics server.

The server exposes POST /api/v1/diaginfo for assembling diagnostic
documents from the cache and runtime subsystems, and periodically
flushes cached history values to durable storage.

Examples:
  # Start with defaults (localhost:10051)
  zabbix serve

  # Start on custom host and port
  zabbix serve --host 0.0.0.0 --port 8080

  # Enable CORS for browser clients
  zabbix serve --cors`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
	serveCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Host address to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false,
		"Enable CORS headers")
}

func runServe(cobraCmd *cobra.Command, _ []string) error {
	// Create logger
	logger := logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	// Load configuration
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	host := cfg.Server.Host
	if cobraCmd.Flags().Changed("host") {
		host = serveHost
	}
	port := cfg.Server.Port
	if cobraCmd.Flags().Changed("port") {
		port = servePort
	}
	enableCORS := cfg.Server.EnableCORS || serveCORS

	// Build the subsystems
	historyCache := historycache.New(historycache.Config{
		MaxValuesPerItem: cfg.Cache.History.MaxValuesPerItem,
		TrendInterval:    cfg.Cache.History.TrendIntervalDuration(),
	}, logger.Logger)
	defer historyCache.Stop()

	valueCache := valuecache.New(valuecache.Config{
		MaxValuesPerItem: cfg.Cache.Value.MaxValuesPerItem,
	})

	store, err := storage.NewHistoryStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close history store", slog.String("error", closeErr.Error()))
		}
	}()

	// Wire diagnostic providers
	collector := diag.NewCollector()
	for name, provider := range map[string]diag.StatsProvider{
		diag.SectionHistoryCache: historyCache,
		diag.SectionValueCache:   valueCache,
		diag.SectionRuntime:      selfmon.NewRuntimeProvider(),
		diag.SectionSystem:       selfmon.NewSystemProvider(),
	} {
		if err := collector.Register(name, provider); err != nil {
			return fmt.Errorf("registering %s provider: %w", name, err)
		}
	}

	server := api.NewServer(collector,
		api.WithLogger(logger.Logger),
		api.WithTimeout(cfg.Server.ServerTimeout()),
		api.WithCORS(enableCORS),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(gctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Periodic flush of pending history values to durable storage.
	g.Go(func() error {
		interval := cfg.Cache.History.FlushIntervalDuration()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				// Final flush on shutdown.
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := historyCache.FlushTo(flushCtx, store); err != nil {
					logger.Warn("final flush failed", slog.String("error", err.Error()))
				}
				return nil
			case <-ticker.C:
				if err := historyCache.FlushTo(gctx, store); err != nil {
					logger.Warn("history flush failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	// Watch the config file for log level changes.
	if configPath := loader.ConfigFile(); configPath != "" {
		watcher := config.NewWatcher(configPath, func(updated *config.Config) {
			logger.SetLevel(updated.Log.Level)
		}, logger.Logger)
		g.Go(func() error {
			if err := watcher.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("config watcher: %w", err)
			}
			return nil
		})
	}

	logger.Info("server started",
		slog.String("addr", addr),
		slog.Bool("cors", enableCORS),
		slog.String("storage", cfg.Storage.Path),
	)

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
