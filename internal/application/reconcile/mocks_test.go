package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// mockMarketplace is a stateful marketplace: it serves reads and applies mutations,
// so a second run observes the effects of the first.
type mockMarketplace struct {
	pool    []domain.MarketListing
	own     map[string]*domain.OwnListing
	poolErr error
	ownErr  error

	createErr    error
	updateErr    error
	toggleResult map[string]bool // id → forced toggle result

	nextID    int
	mutations []string
}

func newMockMarketplace(pool []domain.MarketListing, own ...domain.OwnListing) *mockMarketplace {
	m := &mockMarketplace{pool: pool, own: map[string]*domain.OwnListing{}, toggleResult: map[string]bool{}}
	for i := range own {
		l := own[i]
		m.own[l.ID] = &l
	}
	return m
}

func (m *mockMarketplace) FetchMarketListings(_ context.Context, f domain.MarketFilter) ([]domain.MarketListing, error) {
	if m.poolErr != nil {
		return nil, m.poolErr
	}
	return f.Apply(m.pool), nil
}

func (m *mockMarketplace) FetchOwnListings(_ context.Context) ([]domain.OwnListing, error) {
	if m.ownErr != nil {
		return nil, m.ownErr
	}
	ids := make([]string, 0, len(m.own))
	for id := range m.own {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.OwnListing, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.own[id])
	}
	return out, nil
}

func (m *mockMarketplace) CreateOffer(_ context.Context, s domain.OfferSpec) (string, error) {
	m.mutations = append(m.mutations, "create "+s.Template)
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("new-%d", m.nextID)
	m.own[id] = &domain.OwnListing{
		ID: id, Status: domain.StatusActive, Side: domain.SideSell, Type: domain.TypeChannel,
		FixedFee: s.FixedFee, FeeRatePPM: s.FeeRatePPM, MinSize: s.MinSize, MaxSize: s.MaxSize,
		DurationBlocks: s.DurationBlocks, TotalSize: s.TotalSize,
	}
	return id, nil
}

func (m *mockMarketplace) UpdateOffer(_ context.Context, id string, s domain.OfferSpec) error {
	m.mutations = append(m.mutations, "update "+id)
	if m.updateErr != nil {
		return m.updateErr
	}
	l, ok := m.own[id]
	if !ok {
		return errors.New("not found")
	}
	l.FixedFee, l.FeeRatePPM, l.TotalSize = s.FixedFee, s.FeeRatePPM, s.TotalSize
	return nil
}

func (m *mockMarketplace) ToggleOffer(_ context.Context, id string) (bool, error) {
	m.mutations = append(m.mutations, "toggle "+id)
	if r, ok := m.toggleResult[id]; ok && !r {
		return false, nil
	}
	l, ok := m.own[id]
	if !ok {
		return false, nil
	}
	if l.Status == domain.StatusActive {
		l.Status = domain.StatusInactive
	} else {
		l.Status = domain.StatusActive
	}
	return true, nil
}

type mockCapital struct {
	balance int64
	err     error
}

func (m *mockCapital) SpendableBalance(_ context.Context) (int64, error) {
	return m.balance, m.err
}

type mockCredentials bool

func (m mockCredentials) HasToken() bool { return bool(m) }

type mockNotifier struct {
	reports []*domain.RunReport
	alerts  []string
	err     error
}

func (m *mockNotifier) Notify(_ context.Context, r *domain.RunReport) error {
	m.reports = append(m.reports, r)
	return m.err
}

func (m *mockNotifier) Alert(_ context.Context, msg string) error {
	m.alerts = append(m.alerts, msg)
	return m.err
}

type mockConfirmer struct {
	answer  bool
	asked   int
	summary string
}

func (m *mockConfirmer) Confirm(_ context.Context, summary string) (bool, error) {
	m.asked++
	m.summary = summary
	return m.answer, nil
}

type mockJournal struct {
	saved      []*domain.RunReport
	pending    map[string]bool
	pendingErr error
}

func (m *mockJournal) SaveRun(_ context.Context, r *domain.RunReport) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockJournal) RecentRuns(_ context.Context, _ int) ([]domain.RunSummary, error) {
	return nil, nil
}

func (m *mockJournal) Close() error { return nil }

func (m *mockJournal) PendingFirstEnable(_ context.Context) (map[string]bool, error) {
	return m.pending, m.pendingErr
}

// --- helpers ---

func makeTemplate(name string, size int64, days int, share float64, enabled bool) domain.TemplateEntry {
	t, err := domain.NewTemplate(domain.Template{
		Name:            name,
		ChannelSizeSats: size,
		DurationDays:    days,
		MinFixedFee:     0,
		MaxFixedFee:     10_000,
		MinFeeRatePPM:   100,
		MaxFeeRatePPM:   300,
		CapitalShare:    share,
		Enabled:         enabled,
	})
	if err != nil {
		panic(err)
	}
	return domain.TemplateEntry{Name: name, Template: t}
}

func makeMarket(pairs ...[2]int64) []domain.MarketListing {
	out := make([]domain.MarketListing, len(pairs))
	for i, p := range pairs {
		out[i] = domain.MarketListing{
			ID: fmt.Sprintf("m%d", i), Account: fmt.Sprintf("02peer%d", i),
			Status: domain.StatusActive, Side: domain.SideSell, Type: domain.TypeChannel,
			FeeRatePPM: p[0], FixedFee: p[1], SellerScore: 100,
		}
	}
	return out
}

func ownListing(id string, size int64, days int, status domain.ListingStatus, fee, ppm, total int64) domain.OwnListing {
	return domain.OwnListing{
		ID: id, Status: status, Side: domain.SideSell, Type: domain.TypeChannel,
		FixedFee: fee, FeeRatePPM: ppm, MinSize: size, MaxSize: size,
		DurationBlocks: int64(days) * domain.BlocksPerDay, TotalSize: total,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Percentile = 50
	cfg.PositionOffset = 1
	cfg.BalanceFraction = 0.5
	return cfg
}
