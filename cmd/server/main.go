package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/api"
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/logging"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
	"github.com/dgnsrekt/auction-profile/internal/notify"
	"github.com/dgnsrekt/auction-profile/internal/poller"
	"github.com/dgnsrekt/auction-profile/internal/recorder"
	"github.com/dgnsrekt/auction-profile/internal/server"
	reportsync "github.com/dgnsrekt/auction-profile/internal/sync"
	"github.com/dgnsrekt/auction-profile/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load(os.Getenv("PROFILER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Setup logger
	logger, err := logging.New("server", false, &cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	logger.Info("configuration loaded",
		zap.String("symbol", cfg.Symbol),
		zap.String("port", cfg.Server.Port),
		zap.String("provider", cfg.Source.Provider),
		zap.String("schedule", cfg.Refresh.Schedule),
		zap.String("history", cfg.Profile.HistoryInterval+"/"+cfg.Profile.HistoryRange),
		zap.String("previousSession", cfg.Profile.PreviousSession),
		zap.Bool("wsEnabled", cfg.WS.Enabled),
		zap.Bool("notifyEnabled", cfg.Notify.Enabled),
		zap.Bool("recorderEnabled", cfg.Recorder.Path != ""),
	)

	cal := market.New(cfg.Profile.Timezone)

	src, err := api.OpenSource(cfg, logger)
	if err != nil {
		logger.Error("failed to open data source", zap.Error(err))
		return 1
	}

	m := metrics.New()
	quotes := data.NewQuoteStore(nil)
	cache := data.NewBarCache(cfg.CacheTTL())
	svc := analytics.NewService(src, cache, quotes, analytics.ConfigFrom(cfg, cal), m, logger)

	var gate func(time.Time) bool
	if cfg.Refresh.MarketHoursOnly {
		gate = func(t time.Time) bool { return cal.IsTradingDay(t) && cal.InRegularHours(t) }
	}
	p := poller.New(src, quotes, cfg.Symbol, poller.Options{Schedule: cfg.Refresh.Schedule, Gate: gate}, m, logger)

	// Session history (optional)
	history, err := recorder.Open(cfg.Recorder.Path, logger)
	if err != nil {
		logger.Error("failed to open recorder", zap.Error(err))
		return 1
	}
	defer history.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket components (optional)
	var wsHandler http.Handler
	if cfg.WS.Enabled {
		hub := ws.NewHub("quotes", []string{cfg.Symbol}, ws.Encoding(cfg.WS.Encoding), m, logger)
		go hub.Run(ctx)

		streamer, err := ws.NewStreamer(hub, svc, logger)
		if err != nil {
			logger.Error("failed to create streamer", zap.Error(err))
			return 1
		}
		defer streamer.Close()
		p.OnRefresh(streamer.OnRefresh)
		wsHandler = hub

		logger.Info("WebSocket enabled", zap.String("encoding", cfg.WS.Encoding))
	}

	// Server-sent report stream (optional)
	var eventsHandler http.Handler
	if cfg.Events.Enabled {
		broadcaster := reportsync.NewBroadcaster(cfg.Symbol, svc, cfg.Heartbeat(), logger)
		go broadcaster.Run(ctx)
		p.OnRefresh(broadcaster.OnRefresh)
		eventsHandler = broadcaster

		logger.Info("event stream enabled", zap.Duration("heartbeat", cfg.Heartbeat()))
	}

	// Opportunity alerts (optional)
	notifyCfg := notify.FromSettings(cfg.Notify)
	if err := notifyCfg.Validate(); err != nil {
		logger.Error("invalid notify configuration", zap.Error(err))
		return 1
	}
	if notifyCfg.Enabled {
		watcher := notify.NewWatcher(svc, notify.New(notifyCfg, logger), notifyCfg, m, logger)
		p.OnRefresh(watcher.OnRefresh)
		logger.Info("opportunity alerts enabled",
			zap.String("topic", notifyCfg.Topic),
			zap.Float64("proximity", notifyCfg.Proximity),
		)
	}

	srv := server.NewServer(server.Deps{
		Reports: svc,
		Poller:  p,
		Quotes:  quotes,
		Cache:   cache,
		History: history,
		Metrics: m,
		WS:      wsHandler,
		Events:  eventsHandler,
	}, &cfg.Server, logger)

	// Create router
	router, err := server.NewRouter(srv, logger)
	if err != nil {
		logger.Error("failed to create router", zap.Error(err))
		return 1
	}

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", zap.Error(err))
		return 1
	}

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Stop the poller and WebSocket components
	p.Stop()
	cancel()

	// Graceful HTTP server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
