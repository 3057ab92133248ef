package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/alejandrodnm/offerbot/internal/ports"
)

// Engine plans and applies one reconciliation pass.
// Plan only reads; Apply is the only place that mutates the marketplace.
type Engine struct {
	cfg       Config
	templates []domain.TemplateEntry
	market    ports.MarketReader
	analyzer  Analyzer
	creations ports.CreationLog // optional, report-only
}

// NewEngine creates an Engine over the configured templates, in iteration order.
func NewEngine(cfg Config, templates []domain.TemplateEntry, market ports.MarketReader) *Engine {
	return &Engine{
		cfg:       cfg,
		templates: templates,
		market:    market,
		analyzer:  NewAnalyzer(cfg),
	}
}

// snapshot is the external state observed at the start of a run.
type snapshot struct {
	capital           domain.Capital
	pool              []domain.MarketListing // filtered and sorted
	own               []domain.OwnListing
	marketUnavailable bool
	ownUnavailable    bool
	neverEnabled      map[string]bool // created by an earlier live run, not enabled since
}

// Plan fetches the market and own listings and decides every template and orphan.
// Read failures degrade to empty inputs; Plan never returns an error.
func (e *Engine) Plan(ctx context.Context, capital domain.Capital, report *domain.RunReport) {
	snap := e.observe(ctx, capital)

	report.Capital = capital
	report.Market = domain.SummarizeMarket(snap.pool)
	report.Market.Unavailable = snap.marketUnavailable
	report.OwnListings = len(snap.own)
	report.OwnListingsUnavailable = snap.ownUnavailable

	claimed := make(map[string]bool)
	report.Decisions = make([]domain.Decision, 0, len(e.templates))
	for _, entry := range e.templates {
		report.Decisions = append(report.Decisions, e.planTemplate(entry, snap, claimed))
	}
	report.Orphans = e.sweepOrphans(snap.own, claimed)

	slog.Info("reconcile: plan ready",
		"templates", len(report.Decisions),
		"orphans", len(report.Orphans),
		"changes", report.HasChanges(),
	)
}

func (e *Engine) observe(ctx context.Context, capital domain.Capital) snapshot {
	snap := snapshot{capital: capital}

	filter := e.cfg.Filter
	pool, err := e.market.FetchMarketListings(ctx, filter)
	if err != nil {
		slog.Warn("reconcile: market fetch failed, pricing without market data", "err", err)
		snap.marketUnavailable = true
		pool = nil
	}

	own, err := e.market.FetchOwnListings(ctx)
	if err != nil {
		slog.Warn("reconcile: own listings fetch failed, creations disabled this run", "err", err)
		snap.ownUnavailable = true
		own = nil
	}
	snap.own = own

	// Own listings never enter the pricing pool, even when the account filter misses them.
	if len(own) > 0 {
		filter.ExcludeIDs = make(map[string]bool, len(own))
		for _, l := range own {
			filter.ExcludeIDs[l.ID] = true
		}
	}
	snap.pool = domain.SortPool(filter.Apply(pool))

	if e.creations != nil {
		ids, err := e.creations.PendingFirstEnable(ctx)
		if err != nil {
			slog.Warn("reconcile: creation log unavailable, first enables not flagged", "err", err)
		}
		snap.neverEnabled = ids
	}

	slog.Info("reconcile: snapshot",
		"balance", capital.Balance,
		"allocatable", capital.TotalAllocatable,
		"pool", len(snap.pool),
		"own", len(snap.own),
	)
	return snap
}

// planTemplate decides one template. A panic becomes an ERROR decision.
func (e *Engine) planTemplate(entry domain.TemplateEntry, snap snapshot, claimed map[string]bool) (d domain.Decision) {
	d = domain.Decision{Template: entry.Name}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile: panic planning template",
				"template", entry.Name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			d = domain.Decision{
				Template:  entry.Name,
				Kind:      domain.KindError,
				ListingID: d.ListingID,
				Reason:    fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	if entry.Err != nil {
		slog.Error("reconcile: template configuration error", "template", entry.Name, "err", entry.Err)
		d.Kind = domain.KindError
		d.Reason = entry.Err.Error()
		return d
	}
	t := entry.Template

	// 1. Match
	match := matchListing(t, snap.own)
	if match != nil {
		if claimed[match.ID] {
			slog.Warn("reconcile: listing matched by more than one template", "template", t.Name, "id", match.ID)
		}
		claimed[match.ID] = true
		d.ListingID = match.ID
		before := *match
		d.Before = &before
	}

	// 2. Pricing and capital
	pricing := e.analyzer.Analyze(t, snap.pool)
	alloc := snap.capital.Allocate(t)
	d.Pricing = &pricing
	d.Ceiling = alloc.Ceiling
	d.Active = t.Enabled && alloc.Adequate

	// 3. Matched listing
	if match != nil {
		// Under-capitalized: keep the listing's capacity, a ceiling below the
		// channel size cannot back a sale.
		ceiling := alloc.Ceiling
		if !alloc.Adequate {
			ceiling = match.TotalSize
		}
		spec := domain.NewOfferSpec(t, pricing, ceiling)

		update := pricing.FixedFee != match.FixedFee ||
			pricing.FeeRatePPM != match.FeeRatePPM ||
			ceiling != match.TotalSize
		enable := d.Active && match.Status == domain.StatusInactive
		disable := !d.Active && match.IsActive()

		// DISABLE takes precedence: a listing going offline is not repriced.
		if disable {
			update = false
		}

		d.Kind = domain.KindFor(update, enable, disable)
		if update {
			d.Spec = &spec
			d.Actions = append(d.Actions, domain.ActionUpdate)
		}
		if enable {
			d.Actions = append(d.Actions, domain.ActionEnable)
			d.FirstEnable = snap.neverEnabled[match.ID]
		}
		if disable {
			d.Actions = append(d.Actions, domain.ActionDisable)
		}
		e.logDecision(d)
		return d
	}

	// 4. Unmatched
	if reason := skipReason(t, alloc); reason != "" {
		d.Kind = domain.KindSkipCreate
		d.Reason = reason
		e.logDecision(d)
		return d
	}
	if snap.ownUnavailable {
		d.Kind = domain.KindSkipCreate
		d.Reason = domain.ReasonOwnListingsMissing
		e.logDecision(d)
		return d
	}

	spec := domain.NewOfferSpec(t, pricing, alloc.Ceiling)
	d.Kind = domain.KindCreate
	d.Spec = &spec
	// New listings never go live without review: create, then force inactive.
	d.Actions = []domain.Action{domain.ActionCreate, domain.ActionDisable}
	e.logDecision(d)
	return d
}

// matchListing returns the first own listing with the template's (size, duration).
func matchListing(t domain.Template, own []domain.OwnListing) *domain.OwnListing {
	for i := range own {
		if t.Matches(own[i]) {
			return &own[i]
		}
	}
	return nil
}

func skipReason(t domain.Template, alloc domain.Allocation) string {
	switch {
	case !t.Enabled:
		return domain.ReasonDisabled
	case t.ChannelSizeSats <= 0:
		return domain.ReasonInvalidSize
	case !alloc.Adequate:
		return domain.ReasonInsufficientCap
	default:
		return ""
	}
}

// sweepOrphans disables every unclaimed, active, managed own listing exactly once.
func (e *Engine) sweepOrphans(own []domain.OwnListing, claimed map[string]bool) []domain.Decision {
	var orphans []domain.Decision
	seen := make(map[string]bool)
	for _, l := range own {
		if claimed[l.ID] || seen[l.ID] {
			continue
		}
		if !e.cfg.Filter.Manages(l) || !l.IsActive() {
			continue
		}
		seen[l.ID] = true
		before := l
		orphans = append(orphans, domain.Decision{
			Kind:      domain.KindDisable,
			ListingID: l.ID,
			Before:    &before,
			Actions:   []domain.Action{domain.ActionDisable},
		})
		slog.Info("reconcile: orphan listing will be disabled", "id", l.ID, "size", l.MinSize, "duration_blocks", l.DurationBlocks)
	}
	return orphans
}

func (e *Engine) logDecision(d domain.Decision) {
	attrs := []any{
		"template", d.Template,
		"kind", d.Kind,
		"listing", d.ListingID,
		"ceiling", d.Ceiling,
		"active", d.Active,
	}
	if d.Pricing != nil {
		attrs = append(attrs, "fee", d.Pricing.FixedFee, "ppm", d.Pricing.FeeRatePPM, "apr", d.Pricing.APR)
	}
	if d.Reason != "" {
		attrs = append(attrs, "reason", d.Reason)
	}
	slog.Info("reconcile: decision", attrs...)
}
