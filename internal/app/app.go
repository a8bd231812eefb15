package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/infrastructure/archive"
	"DailyKnowledge/internal/infrastructure/feed"
	"DailyKnowledge/internal/infrastructure/llm"
	"DailyKnowledge/internal/infrastructure/scheduler"
	"DailyKnowledge/internal/infrastructure/storage"
	"DailyKnowledge/internal/infrastructure/telegram"
	"DailyKnowledge/internal/logging"
	"DailyKnowledge/internal/metrics"
	"DailyKnowledge/internal/ports"
	"DailyKnowledge/internal/sources"
	"DailyKnowledge/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.SQLRepository
	metrics    *metrics.Pipeline
	assembler  *usecase.Assembler
	weekly     *usecase.WeeklySynthesizer
	collection *usecase.Collection
	scheduler  *usecase.Scheduler
}

// New validates cfg, opens the store and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, &domain.ConfigError{Err: err}
	}

	registry, err := sources.FromConfig(cfg.Feeds)
	if err != nil {
		return nil, &domain.ConfigError{Err: err}
	}

	completer, err := llm.New(cfg.LLM, nil)
	if err != nil {
		return nil, &domain.ConfigError{Err: err}
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	pipelineMetrics := metrics.NewPipeline()
	location := cfg.Scheduler.Location()

	retriever := feed.NewRetriever(nil, feed.Options{
		Limit:     cfg.Pipeline.ItemsPerSource,
		Timeout:   cfg.Pipeline.FetchTimeout,
		UserAgent: cfg.Pipeline.UserAgent,
	}, baseLogger.With("component", "feed"))

	curator := usecase.NewCurator(usecase.CuratorDeps{
		Completer:     completer,
		Metrics:       pipelineMetrics,
		Logger:        baseLogger.With("component", "curator"),
		MaxPicks:      cfg.Pipeline.MaxPicks,
		SnippetLength: cfg.Pipeline.SnippetLength,
		Language:      cfg.LLM.OutputLanguage,
	})

	var runArchive ports.RunArchive
	if cfg.Archive.Dir != "" {
		runArchive = archive.NewJSONArchive(cfg.Archive.Dir)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	assembler := usecase.NewAssembler(usecase.AssemblerDeps{
		Registry:    registry,
		Retriever:   retriever,
		Curator:     curator,
		Store:       store,
		Archive:     runArchive,
		Notifier:    notifier,
		Metrics:     pipelineMetrics,
		Logger:      baseLogger.With("component", "assembler"),
		Concurrency: cfg.Pipeline.Concurrency,
		Location:    location,
	})

	weekly := usecase.NewWeeklySynthesizer(usecase.WeeklyDeps{
		Completer: completer,
		Store:     store,
		Logger:    baseLogger.With("component", "weekly"),
		Language:  cfg.LLM.OutputLanguage,
	})

	collection := usecase.NewCollection(usecase.CollectionDeps{
		Store:  store,
		Logger: baseLogger.With("component", "collection"),
	})

	cron := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, location, baseLogger)
	if err := cron.Validate(); err != nil {
		_ = store.Close()
		return nil, &domain.ConfigError{Err: err}
	}
	daily := usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:   cron,
		Runner:   assembler,
		Store:    store,
		Logger:   baseLogger.With("component", "scheduler"),
		Location: location,
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		metrics:    pipelineMetrics,
		assembler:  assembler,
		weekly:     weekly,
		collection: collection,
		scheduler:  daily,
	}, nil
}

// Collection exposes bookmarks, notes and stored reviews.
func (a *Application) Collection() *usecase.Collection { return a.collection }

// Fetch runs the daily pipeline once. Without force it is skipped when
// today's feed already exists; the bool reports whether it ran.
func (a *Application) Fetch(ctx context.Context, force bool) (domain.DailyRun, bool, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	if force {
		run, err := a.assembler.Run(ctx, now)
		return run, true, err
	}
	return a.scheduler.RunIfDue(ctx, now)
}

// GenerateReview builds and stores this week's review.
func (a *Application) GenerateReview(ctx context.Context) (domain.WeeklyReview, error) {
	return a.weekly.Generate(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

// Serve runs the scheduler and the metrics endpoint until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("daily scheduler running", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	var srv *http.Server
	errCh := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics endpoint listening", "addr", a.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		serveErr = fmt.Errorf("metrics endpoint: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics shutdown", "error", err)
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	return serveErr
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
