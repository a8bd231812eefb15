package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/metrics"
	"DailyKnowledge/internal/ports"
	"DailyKnowledge/internal/sources"
)

// CategoryCurator is the curation step of the daily pipeline.
type CategoryCurator interface {
	Validate() error
	Curate(ctx context.Context, category domain.Category, candidates []domain.RawCandidate) ([]domain.CuratedInsight, error)
}

// AssemblerDeps wires all driven adapters into the daily pipeline.
type AssemblerDeps struct {
	Registry    *sources.Registry
	Retriever   ports.FeedRetriever
	Curator     CategoryCurator
	Store       ports.InsightStore
	Archive     ports.RunArchive
	Notifier    ports.Notifier
	Metrics     *metrics.Pipeline
	Logger      *slog.Logger
	Concurrency int
	Location    *time.Location
}

// Assembler runs Retriever -> Dedup -> Curator once per category and merges
// the results into the day's insight set.
type Assembler struct {
	registry    *sources.Registry
	retriever   ports.FeedRetriever
	curator     CategoryCurator
	store       ports.InsightStore
	archive     ports.RunArchive
	notifier    ports.Notifier
	metrics     *metrics.Pipeline
	logger      *slog.Logger
	concurrency int
	location    *time.Location
}

// NewAssembler constructs the orchestration component.
func NewAssembler(deps AssemblerDeps) *Assembler {
	a := &Assembler{
		registry:    deps.Registry,
		retriever:   deps.Retriever,
		curator:     deps.Curator,
		store:       deps.Store,
		archive:     deps.Archive,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		concurrency: deps.Concurrency,
		location:    deps.Location,
	}
	if a.concurrency <= 0 {
		a.concurrency = 1
	}
	if a.location == nil {
		a.location = time.UTC
	}
	if a.registry == nil {
		a.registry = sources.NewRegistry()
	}
	return a
}

type categoryResult struct {
	insights []domain.CuratedInsight
	errors   []string
}

// Run executes one fetch cycle. Per-source and per-category failures are
// recorded in DailyRun.Errors; only a configuration error aborts the run.
func (a *Assembler) Run(ctx context.Context, now time.Time) (domain.DailyRun, error) {
	if a.curator == nil {
		return domain.DailyRun{}, &domain.ConfigError{Err: domain.ErrNotConfigured}
	}
	if err := a.curator.Validate(); err != nil {
		return domain.DailyRun{}, err
	}
	if a.retriever == nil {
		return domain.DailyRun{}, &domain.ConfigError{Err: errors.New("feed retriever is not configured")}
	}

	started := time.Now()
	day := now.In(a.location).Format(domain.DateLayout)
	categories := a.registry.Categories()
	a.info("starting daily fetch", "date", day, "categories", len(categories))

	results := make([]categoryResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, category := range categories {
		g.Go(func() error {
			res, err := a.runCategory(gctx, category)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DailyRun{}, err
	}

	run := domain.DailyRun{
		Date:        day,
		GeneratedAt: now,
		Errors:      []string{},
		Insights:    []domain.CuratedInsight{},
	}
	for _, res := range results {
		for _, insight := range res.insights {
			insight.Date = day
			run.Insights = append(run.Insights, insight)
		}
		run.Errors = append(run.Errors, res.errors...)
	}
	sort.SliceStable(run.Insights, func(i, j int) bool {
		return run.Insights[i].Category.Rank() < run.Insights[j].Category.Rank()
	})
	run.TotalCount = len(run.Insights)

	if err := a.persist(ctx, run); err != nil {
		return run, err
	}
	a.afterRun(ctx, run)

	a.metrics.ObserveRun(time.Since(started))
	a.info("daily fetch finished", "date", day, "insights", run.TotalCount, "errors", len(run.Errors))
	return run, nil
}

func (a *Assembler) runCategory(ctx context.Context, category domain.Category) (categoryResult, error) {
	var res categoryResult
	var pool []domain.RawCandidate

	feeds, err := a.registry.Resolve(category)
	if err != nil {
		return res, &domain.ConfigError{Err: err}
	}

	for _, src := range feeds {
		items, err := a.retriever.Retrieve(ctx, src)
		if err != nil {
			a.metrics.SourceFailed(src.Name)
			a.warn("source unavailable", "category", category, "source", src.Name, "error", err)
			res.errors = append(res.errors, fmt.Sprintf("[%s] %v", category, err))
			continue
		}
		pool = append(pool, items...)
	}

	if len(pool) == 0 {
		a.warn("no valid articles, skipping category", "category", category)
		return res, nil
	}

	unique := Deduplicate(pool)
	a.debug("sending candidates for curation", "category", category, "raw", len(pool), "unique", len(unique))

	insights, err := a.curator.Curate(ctx, category, unique)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			return res, err
		}
		res.errors = append(res.errors, fmt.Sprintf("[%s] %v", category, err))
		return res, nil
	}

	res.insights = insights
	a.debug("category selected highlights", "category", category, "count", len(insights))
	return res, nil
}

// persist replaces the stored daily feed. An empty run keeps the previous
// feed so a failed day does not blank the dashboard.
func (a *Assembler) persist(ctx context.Context, run domain.DailyRun) error {
	if a.store == nil {
		return nil
	}
	if len(run.Insights) == 0 {
		a.warn("daily fetch produced no insights, keeping previous feed", "date", run.Date)
		return nil
	}
	if err := a.store.SaveDailyInsights(ctx, run.Insights); err != nil {
		return fmt.Errorf("save daily insights: %w", err)
	}
	return nil
}

func (a *Assembler) afterRun(ctx context.Context, run domain.DailyRun) {
	if a.archive != nil {
		if err := a.archive.Write(ctx, run); err != nil {
			a.warn("archive daily run", "date", run.Date, "error", err)
		}
	}

	if a.notifier == nil || len(run.Insights) == 0 {
		return
	}
	if err := a.notifier.PublishDigest(ctx, BuildDigestMessage(run)); err != nil {
		a.warn("publish digest", "error", err)
	}
}

// BuildDigestMessage lists the top-scored insight of every category.
func BuildDigestMessage(run domain.DailyRun) string {
	if len(run.Insights) == 0 {
		return ""
	}

	top := map[domain.Category]domain.CuratedInsight{}
	var order []domain.Category
	for _, in := range run.Insights {
		best, ok := top[in.Category]
		if !ok {
			order = append(order, in.Category)
		}
		if !ok || in.Score > best.Score {
			top[in.Category] = in
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Knowledge %s: %d insights ready\n\n", run.Date, len(run.Insights))
	for _, category := range order {
		in := top[category]
		fmt.Fprintf(&b, "[%s] %s (%d)\n%s\n\n", category, in.Title, in.Score, in.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Assembler) info(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Assembler) warn(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
