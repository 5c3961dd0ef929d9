package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/einvoice-tracker/internal/enrich"
	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
	"github.com/donaldgifford/einvoice-tracker/internal/notify"
	"github.com/donaldgifford/einvoice-tracker/internal/portal"
	"github.com/donaldgifford/einvoice-tracker/internal/store"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// Trigger names the producer that requested a cycle.
type Trigger string

// Cycle triggers.
const (
	TriggerInterval Trigger = "interval"
	TriggerMonthly  Trigger = "monthly"
)

// Acquirer logs in to the portal and returns a fresh session.
type Acquirer interface {
	Acquire(ctx context.Context) (*portal.Session, error)
}

// Portal is the set of portal calls one cycle makes.
type Portal interface {
	ExchangeToken(
		ctx context.Context,
		s *portal.Session,
		tr domain.TimeRange,
		relogin portal.ReloginFunc,
	) (*portal.Session, portal.AuthToken, error)
	ListInvoices(ctx context.Context, s *portal.Session, tok portal.AuthToken) ([]portal.InvoiceSummary, error)
	FetchItems(ctx context.Context, s *portal.Session, detailToken string) ([]domain.InvoiceItem, error)
	FetchDatetime(ctx context.Context, s *portal.Session, detailToken string) (time.Time, error)
}

// CycleResult summarizes one completed or aborted cycle.
type CycleResult struct {
	ID        string
	Trigger   Trigger
	Range     domain.TimeRange
	Seen      int
	Committed int
	Notified  int
	Duration  time.Duration
}

// Engine runs fetch cycles: login, token exchange, listing, then
// enrichment, commit and notification for every unseen invoice.
type Engine struct {
	acquirer Acquirer
	portal   Portal
	store    store.Store
	enricher enrich.Enricher
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock overrides the clock used for cycle timing.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	a Acquirer,
	p Portal,
	s store.Store,
	en enrich.Enricher,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		acquirer: a,
		portal:   p,
		store:    s,
		enricher: en,
		notifier: n,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// RunCycle runs one fetch cycle over tr. The first fatal error aborts the
// rest of the cycle; invoices committed before it stay committed.
func (eng *Engine) RunCycle(ctx context.Context, trigger Trigger, tr domain.TimeRange) (*CycleResult, error) {
	res := &CycleResult{ID: uuid.NewString(), Trigger: trigger, Range: tr}
	log := eng.log.With("cycle_id", res.ID, "trigger", string(trigger))

	start := eng.now()
	log.Info("cycle starting", "range", tr.String())

	err := eng.runCycle(ctx, log, tr, res)

	res.Duration = eng.now().Sub(start)
	metrics.CycleDuration.Observe(res.Duration.Seconds())

	if err != nil {
		metrics.CyclesTotal.WithLabelValues(string(trigger), "failure").Inc()
		log.Error("cycle failed",
			"error", err,
			"seen", res.Seen,
			"new_invoices", res.Committed,
			"duration", res.Duration,
		)
		return res, err
	}

	metrics.CyclesTotal.WithLabelValues(string(trigger), "success").Inc()
	log.Info("cycle complete",
		"seen", res.Seen,
		"new_invoices", res.Committed,
		"notified", res.Notified,
		"duration", res.Duration,
	)
	return res, nil
}

func (eng *Engine) runCycle(ctx context.Context, log *slog.Logger, tr domain.TimeRange, res *CycleResult) error {
	s, err := eng.acquirer.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring session: %w", err)
	}

	s, tok, err := eng.portal.ExchangeToken(ctx, s, tr, eng.acquirer.Acquire)
	if err != nil {
		return fmt.Errorf("exchanging token: %w", err)
	}

	summaries, err := eng.portal.ListInvoices(ctx, s, tok)
	if err != nil {
		return fmt.Errorf("listing invoices: %w", err)
	}
	res.Seen = len(summaries)
	metrics.InvoicesSeenTotal.Add(float64(len(summaries)))
	log.Info("invoices listed", "count", len(summaries))

	for i := range summaries {
		if err := ctx.Err(); err != nil {
			return err
		}

		sum := &summaries[i]
		seen, err := eng.store.Exists(ctx, sum.Number)
		if err != nil {
			return fmt.Errorf("checking invoice %s: %w", sum.Number, err)
		}
		if seen {
			continue
		}

		committed, err := eng.processInvoice(ctx, log, s, sum)
		if err != nil {
			return err
		}
		if committed == nil {
			continue
		}
		res.Committed++

		if eng.notify(ctx, log, committed) {
			res.Notified++
		}
	}

	return nil
}

// processInvoice builds and commits the invoice for sum. A nil invoice with
// a nil error means another writer committed it first.
func (eng *Engine) processInvoice(
	ctx context.Context,
	log *slog.Logger,
	s *portal.Session,
	sum *portal.InvoiceSummary,
) (*domain.Invoice, error) {
	log = log.With("invoice", sum.Number)
	log.Info("processing invoice",
		"seller", sum.SellerName,
		"amount", float64(sum.TotalAmount),
	)

	items, err := eng.portal.FetchItems(ctx, s, sum.DetailToken)
	if err != nil {
		return nil, fmt.Errorf("fetching items of %s: %w", sum.Number, err)
	}
	issuedAt, err := eng.portal.FetchDatetime(ctx, s, sum.DetailToken)
	if err != nil {
		return nil, fmt.Errorf("fetching datetime of %s: %w", sum.Number, err)
	}

	items = domain.FilterZeroAmount(items)
	for i := range items {
		if items[i].Category, err = eng.categorize(ctx, log, items[i]); err != nil {
			return nil, fmt.Errorf("categorizing %s: %w", sum.Number, err)
		}
	}

	draft, err := domain.NewInvoice(sum.Number, sum.SellerName, float64(sum.TotalAmount), issuedAt, "", items)
	if err != nil {
		return nil, err
	}
	desc, err := eng.describe(ctx, log, draft)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", sum.Number, err)
	}
	inv, err := domain.NewInvoice(draft.Number, draft.SellerName, draft.TotalAmount, draft.Datetime, desc, draft.Items)
	if err != nil {
		return nil, err
	}

	// An invoice enriched under a cancelled ctx is left for the next cycle.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("committing invoice %s: %w", inv.Number, err)
	}
	if err := eng.store.Commit(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyCommitted) {
			log.Warn("invoice committed concurrently, skipping notification")
			return nil, nil
		}
		return nil, fmt.Errorf("committing invoice %s: %w", inv.Number, err)
	}
	metrics.InvoicesCommittedTotal.Inc()
	log.Info("invoice committed", "items", len(inv.Items))

	return inv, nil
}

// categorize degrades backend failures to an empty category. Only
// cancellation of ctx is returned as an error.
func (eng *Engine) categorize(ctx context.Context, log *slog.Logger, item domain.InvoiceItem) (string, error) {
	category, err := eng.enricher.Categorize(ctx, item)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		metrics.EnrichmentFailuresTotal.WithLabelValues("categorize").Inc()
		log.Warn("categorization unavailable", "item", item.Name, "error", err)
		return "", nil
	}
	return category, nil
}

func (eng *Engine) describe(ctx context.Context, log *slog.Logger, inv *domain.Invoice) (string, error) {
	desc, err := eng.enricher.Describe(ctx, inv)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		metrics.EnrichmentFailuresTotal.WithLabelValues("describe").Inc()
		log.Warn("description unavailable", "error", err)
		return "", nil
	}
	return desc, nil
}

// notify is best effort. Failures are logged and counted, never retried.
func (eng *Engine) notify(ctx context.Context, log *slog.Logger, inv *domain.Invoice) bool {
	if err := eng.notifier.SendInvoice(ctx, inv); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		log.Error("notification failed", "invoice", inv.Number, "error", err)
		return false
	}
	metrics.NotificationsSentTotal.Inc()
	return true
}
