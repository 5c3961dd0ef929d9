package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/einvoice-tracker/internal/api"
	"github.com/donaldgifford/einvoice-tracker/internal/config"
	"github.com/donaldgifford/einvoice-tracker/internal/engine"
	"github.com/donaldgifford/einvoice-tracker/internal/store"
	"github.com/donaldgifford/einvoice-tracker/pkg/logger"
)

func runTracker(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, log)
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	loc, err := cfg.Portal.Location()
	if err != nil {
		return fmt.Errorf("loading portal timezone %q: %w", cfg.Portal.Timezone, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	st, err := store.New(initCtx, &cfg.Store)
	cancel()
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("closing store", "error", err)
		}
	}()
	log.Info("store ready", "driver", cfg.Store.Driver)

	acquirer := buildAcquirer(cfg, log)
	client := buildPortalClient(cfg, loc, log)

	enricher, err := buildEnricher(&cfg.Enrich, log)
	if err != nil {
		return err
	}
	notifier := buildNotifier(&cfg.Notifications, log)

	eng := engine.NewEngine(acquirer, client, st, enricher, notifier,
		engine.WithLogger(log),
	)

	schedCfg := engine.SchedulerConfig{
		MinInterval: cfg.Schedule.MinInterval,
		MaxInterval: cfg.Schedule.MaxInterval,
		RunOnStart:  *cfg.Schedule.RunOnStart,
		ExitOnFatal: cfg.Schedule.ExitOnFatal,
		Location:    loc,
	}
	if cfg.Schedule.MonthlyEnabled {
		schedCfg.MonthlySpec = cfg.Schedule.MonthlySpec
	}
	sched, err := engine.NewScheduler(eng, schedCfg, engine.WithSchedulerLogger(log))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	if cfg.Server.Enabled {
		srv := api.NewServer(st, log)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting health server", "addr", addr)

		go func() {
			if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("health server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutting down health server", "error", err)
			}
		}()
	}

	log.Info("einvoice-tracker started", "version", Version)
	if err := sched.Run(ctx); err != nil {
		log.Error("stopping on fatal cycle error", "error", err)
		return err
	}
	log.Info("einvoice-tracker stopped")
	return nil
}
