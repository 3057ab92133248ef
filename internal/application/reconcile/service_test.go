package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/offerbot/internal/adapters/paper"
	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/alejandrodnm/offerbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	market    *mockMarketplace
	capital   *mockCapital
	notifier  *mockNotifier
	confirmer *mockConfirmer
	journal   *mockJournal
}

func newFixture() *serviceFixture {
	stale := ownListing("stale", 1_000_000, 30, domain.StatusActive, 10, 250, 1_000_000)
	orphan := ownListing("orphan", 7_000_000, 30, domain.StatusActive, 0, 0, 7_000_000)
	return &serviceFixture{
		market:    newMockMarketplace(makeMarket([2]int64{80, 10}, [2]int64{150, 5}), stale, orphan),
		capital:   &mockCapital{balance: 10_000_000},
		notifier:  &mockNotifier{},
		confirmer: &mockConfirmer{answer: true},
		journal:   &mockJournal{},
	}
}

func (f *serviceFixture) templates() []domain.TemplateEntry {
	return []domain.TemplateEntry{
		makeTemplate("a", 1_000_000, 30, 0.2, true),
		makeTemplate("b", 2_000_000, 30, 0.4, true),
	}
}

func (f *serviceFixture) service(cfg Config, exec ports.OfferExecutor) *Service {
	return NewService(cfg, f.templates(), Deps{
		Credentials: mockCredentials(true),
		Capital:     f.capital,
		Market:      f.market,
		Executor:    exec,
		Confirmer:   f.confirmer,
		Notifiers:   []ports.Notifier{f.notifier},
		Journal:     f.journal,
	})
}

func TestRunOnce_LiveWithConfirmation(t *testing.T) {
	f := newFixture()
	svc := f.service(testConfig(), f.market)

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.confirmer.asked)
	assert.Contains(t, f.confirmer.summary, "UPDATE")
	assert.Contains(t, f.confirmer.summary, "orphan orphan")
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.IsZero())
	assert.Equal(t, domain.KindUpdate, report.Decisions[0].Kind)
	assert.Equal(t, domain.KindCreate, report.Decisions[1].Kind)
	assert.Len(t, report.Orphans, 1)
	assert.NotEmpty(t, f.market.mutations)

	require.Len(t, f.notifier.reports, 1)
	assert.Len(t, f.journal.saved, 1)
}

func TestRunOnce_OperatorDeclines(t *testing.T) {
	f := newFixture()
	f.confirmer.answer = false
	svc := f.service(testConfig(), f.market)

	report, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, f.market.mutations)
	assert.NotEmpty(t, report.Aborted)
	assert.Len(t, f.notifier.alerts, 1)
	assert.Len(t, f.journal.saved, 1)
}

func TestRunOnce_ForceSkipsConfirmation(t *testing.T) {
	f := newFixture()
	cfg := testConfig()
	cfg.Force = true
	svc := f.service(cfg, f.market)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.confirmer.asked)
	assert.NotEmpty(t, f.market.mutations)
}

func TestRunOnce_NoConfirmationWhenNothingChanges(t *testing.T) {
	f := newFixture()
	f.market = newMockMarketplace(makeMarket([2]int64{80, 10}),
		ownListing("a", 1_000_000, 30, domain.StatusActive, 10, 100, 1_000_000))
	svc := NewService(testConfig(), []domain.TemplateEntry{makeTemplate("a", 1_000_000, 30, 0.2, true)}, Deps{
		Credentials: mockCredentials(true),
		Capital:     f.capital,
		Market:      f.market,
		Executor:    f.market,
		Confirmer:   f.confirmer,
	})

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, report.HasChanges())
	assert.Equal(t, 0, f.confirmer.asked)
}

func TestRunOnce_MissingTokenAbortsBeforeAnyCall(t *testing.T) {
	f := newFixture()
	svc := NewService(testConfig(), f.templates(), Deps{
		Credentials: mockCredentials(false),
		Capital:     &mockCapital{err: errors.New("must not be called")},
		Market:      f.market,
		Executor:    f.market,
		Notifiers:   []ports.Notifier{f.notifier},
	})

	report, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Empty(t, report.Decisions)
	assert.Empty(t, f.market.mutations)
	require.Len(t, f.notifier.alerts, 1)
	assert.Contains(t, f.notifier.alerts[0], "token")
}

func TestRunOnce_BalanceFailureAborts(t *testing.T) {
	f := newFixture()
	f.capital.err = errors.New("lncli: wallet locked")
	cfg := testConfig()
	cfg.Force = true
	svc := f.service(cfg, f.market)

	report, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet locked")
	assert.Empty(t, report.Decisions)
	assert.Empty(t, f.market.mutations)
	assert.Len(t, f.notifier.alerts, 1)
	assert.Empty(t, f.notifier.reports)
}

func TestRunOnce_LiveWithoutConfirmerAborts(t *testing.T) {
	f := newFixture()
	svc := NewService(testConfig(), f.templates(), Deps{
		Credentials: mockCredentials(true),
		Capital:     f.capital,
		Market:      f.market,
		Executor:    f.market,
	})

	_, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrNoConfirmer)
	assert.Empty(t, f.market.mutations)
}

func TestRunOnce_NotifierFailureDoesNotFailRun(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("telegram down")
	cfg := testConfig()
	cfg.DryRun = true
	svc := f.service(cfg, paper.NewExecutor())

	_, err := svc.RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestRunOnce_DryRunMatchesLiveDecisions(t *testing.T) {
	dry := newFixture()
	dryCfg := testConfig()
	dryCfg.DryRun = true
	exec := paper.NewExecutor()
	dryReport, err := dry.service(dryCfg, exec).RunOnce(context.Background())
	require.NoError(t, err)

	live := newFixture()
	liveCfg := testConfig()
	liveCfg.Force = true
	liveReport, err := live.service(liveCfg, live.market).RunOnce(context.Background())
	require.NoError(t, err)

	// el dry-run no toca el marketplace
	assert.Empty(t, dry.market.mutations)
	assert.Equal(t, 0, dry.confirmer.asked)
	assert.Len(t, exec.Calls(), len(live.market.mutations))

	require.Len(t, dryReport.Decisions, len(liveReport.Decisions))
	for i := range dryReport.Decisions {
		d, l := dryReport.Decisions[i], liveReport.Decisions[i]
		assert.Equal(t, l.Kind, d.Kind, l.Template)
		assert.Equal(t, l.Ceiling, d.Ceiling)
		assert.Equal(t, l.Pricing, d.Pricing)
		assert.Equal(t, l.Spec, d.Spec)
		assert.Equal(t, l.Actions, d.Actions)
	}
	require.Len(t, dryReport.Orphans, len(liveReport.Orphans))
	for i := range dryReport.Orphans {
		assert.Equal(t, liveReport.Orphans[i].ListingID, dryReport.Orphans[i].ListingID)
	}
}

func TestRunOnce_RecoversPanic(t *testing.T) {
	f := newFixture()
	svc := NewService(testConfig(), f.templates(), Deps{
		Credentials: mockCredentials(true),
		Capital:     f.capital,
		Market:      nil, // Plan dereferences the reader
		Executor:    f.market,
		Notifiers:   []ports.Notifier{f.notifier},
	})

	report, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.NotEmpty(t, report.Aborted)
	assert.Len(t, f.notifier.alerts, 1)
}

func TestRunOnce_FirstEnableShownInConfirmation(t *testing.T) {
	f := newFixture()
	f.market = newMockMarketplace(makeMarket([2]int64{80, 10}),
		ownListing("fresh", 1_000_000, 30, domain.StatusInactive, 10, 100, 1_000_000))
	f.journal.pending = map[string]bool{"fresh": true}
	svc := NewService(testConfig(), []domain.TemplateEntry{makeTemplate("a", 1_000_000, 30, 0.2, true)}, Deps{
		Credentials: mockCredentials(true),
		Capital:     f.capital,
		Market:      f.market,
		Executor:    f.market,
		Confirmer:   f.confirmer,
		Notifiers:   []ports.Notifier{f.notifier},
		Journal:     f.journal,
	})

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Contains(t, f.confirmer.summary, "enabled after creation")
	require.Len(t, report.Decisions, 1)
	assert.Equal(t, domain.KindEnable, report.Decisions[0].Kind)
	assert.True(t, report.Decisions[0].FirstEnable)
	assert.Equal(t, []string{"toggle fresh"}, f.market.mutations)
}
