package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/alejandrodnm/offerbot/internal/ports"
)

var (
	// ErrMissingToken aborts a run before any call when no marketplace credential is configured.
	ErrMissingToken = errors.New("marketplace API token not configured")
	// ErrAborted is returned when the operator declines a live run.
	ErrAborted = errors.New("run aborted by operator")
	// ErrNoConfirmer is returned for a live run without -force and without a way to ask.
	ErrNoConfirmer = errors.New("live run requires confirmation but no prompt is available")
)

// Credentials reports whether the marketplace token is present.
type Credentials interface {
	HasToken() bool
}

// Deps are the collaborators of a Service. Journal, Metrics and Confirmer are optional.
type Deps struct {
	Credentials Credentials
	Capital     ports.CapitalSource
	Market      ports.MarketReader
	Executor    ports.OfferExecutor
	Confirmer   ports.Confirmer
	Notifiers   []ports.Notifier
	Journal     ports.RunJournal
	Metrics     ports.MetricsSink
}

// Service runs full reconciliation passes: prerequisites, plan, confirm, apply, publish.
type Service struct {
	cfg    Config
	deps   Deps
	engine *Engine
	now    func() time.Time
}

// NewService wires a Service.
func NewService(cfg Config, templates []domain.TemplateEntry, deps Deps) *Service {
	engine := NewEngine(cfg, templates, deps.Market)
	if cl, ok := deps.Journal.(ports.CreationLog); ok {
		engine.creations = cl
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		engine: engine,
		now:    time.Now,
	}
}

// RunOnce performs one pass. The report is always returned, also on abort.
// Mutations run on a context detached from cancellation so an interrupt cannot cut one in half.
func (s *Service) RunOnce(ctx context.Context) (report *domain.RunReport, err error) {
	report = &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
		DryRun:    s.cfg.DryRun,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile: CRITICAL unhandled panic, remaining run aborted",
				"run_id", report.RunID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("reconcile.RunOnce: panic: %v", r)
			s.abort(ctx, report, err)
		}
	}()

	slog.Info("reconcile: run start", "run_id", report.RunID, "dry_run", s.cfg.DryRun)

	// 1. Prerequisites: credential and balance. Nothing is mutated before both succeed.
	if s.deps.Credentials == nil || !s.deps.Credentials.HasToken() {
		err = fmt.Errorf("reconcile.RunOnce: %w", ErrMissingToken)
		s.abort(ctx, report, err)
		return report, err
	}

	balance, err := s.deps.Capital.SpendableBalance(ctx)
	if err != nil {
		err = fmt.Errorf("reconcile.RunOnce: balance: %w", err)
		s.abort(ctx, report, err)
		return report, err
	}
	capital := domain.NewCapital(balance, s.cfg.BalanceFraction)

	// 2. Plan
	s.engine.Plan(ctx, capital, report)

	// 3. Confirmation (live, mutations pending, no -force)
	if !s.cfg.DryRun && !s.cfg.Force && report.HasChanges() {
		if err = s.confirm(ctx, report); err != nil {
			s.abort(ctx, report, err)
			return report, err
		}
	}

	// 4. Apply
	s.engine.Apply(context.WithoutCancel(ctx), s.deps.Executor, report)
	report.FinishedAt = s.now().UTC()

	// 5. Publish
	s.publish(ctx, report)

	counts := report.CountByKind()
	slog.Info("reconcile: run complete",
		"run_id", report.RunID,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		"changes", report.HasChanges(),
		"errors", len(report.Errors()),
		"no_change", counts[domain.KindNoChange],
	)
	return report, nil
}

func (s *Service) confirm(ctx context.Context, report *domain.RunReport) error {
	if s.deps.Confirmer == nil {
		return fmt.Errorf("reconcile.RunOnce: %w", ErrNoConfirmer)
	}
	ok, err := s.deps.Confirmer.Confirm(ctx, DescribePlan(report))
	if err != nil {
		return fmt.Errorf("reconcile.RunOnce: confirm: %w", err)
	}
	if !ok {
		return fmt.Errorf("reconcile.RunOnce: %w", ErrAborted)
	}
	return nil
}

// abort records the reason, raises a critical alert and persists the run.
func (s *Service) abort(ctx context.Context, report *domain.RunReport, err error) {
	report.Aborted = err.Error()
	report.FinishedAt = s.now().UTC()
	slog.Error("reconcile: CRITICAL run aborted", "run_id", report.RunID, "err", err)

	msg := fmt.Sprintf("Offer reconciliation aborted: %v", err)
	if report.DryRun {
		msg = "[DRY RUN] " + msg
	}
	for _, n := range s.deps.Notifiers {
		if nerr := n.Alert(ctx, msg); nerr != nil {
			slog.Warn("reconcile: alert failed", "err", nerr)
		}
	}
	s.persist(ctx, report)
}

// publish reports the run. Notifier, journal and metrics failures are logged only.
func (s *Service) publish(ctx context.Context, report *domain.RunReport) {
	for _, n := range s.deps.Notifiers {
		if err := n.Notify(ctx, report); err != nil {
			slog.Warn("reconcile: notifier failed", "err", err)
		}
	}
	s.persist(ctx, report)
}

func (s *Service) persist(ctx context.Context, report *domain.RunReport) {
	if s.deps.Journal != nil {
		if err := s.deps.Journal.SaveRun(ctx, report); err != nil {
			slog.Warn("reconcile: journal write failed", "err", err)
		}
	}
	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.Record(report); err != nil {
			slog.Warn("reconcile: metrics write failed", "err", err)
		}
	}
}

// DescribePlan renders the pending mutations for the operator prompt.
func DescribePlan(report *domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Balance %d sats, allocatable %d sats, market pool %d\n",
		report.Capital.Balance, report.Capital.TotalAllocatable, report.Market.PoolSize)
	for _, d := range report.All() {
		if !d.Kind.Mutates() {
			continue
		}
		fmt.Fprintf(&b, "  %-22s %s", d.Kind, d.Label())
		if d.ListingID != "" && !d.Orphan() {
			fmt.Fprintf(&b, " (%s)", d.ListingID)
		}
		if d.Spec != nil {
			fmt.Fprintf(&b, " fee=%d ppm=%d total=%d", d.Spec.FixedFee, d.Spec.FeeRatePPM, d.Spec.TotalSize)
		}
		if note := d.FirstEnableNote(); note != "" {
			fmt.Fprintf(&b, " [%s]", note)
		}
		b.WriteString("\n")
	}
	return b.String()
}
