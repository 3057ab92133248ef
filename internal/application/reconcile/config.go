package reconcile

import "github.com/alejandrodnm/offerbot/internal/domain"

const (
	DefaultPercentile     = 10.0
	DefaultPositionOffset = 1
)

// Config is the immutable run configuration shared by the analyzer, allocator and reconciler.
// It is built once at startup and never mutated.
type Config struct {
	Percentile      float64 // 0..100, rank inside the competitiveness-sorted pool
	PositionOffset  int     // 1 = exactly at the percentile
	GlobalMinPPM    int64   // floor applied after template clamping
	BalanceFraction float64 // share of the wallet balance eligible for sale

	Filter domain.MarketFilter

	DryRun bool
	Force  bool // skip the operator confirmation in live mode
}

// DefaultConfig returns a Config with safe defaults.
func DefaultConfig() Config {
	return Config{
		Percentile:      DefaultPercentile,
		PositionOffset:  DefaultPositionOffset,
		BalanceFraction: 0,
		Filter:          domain.DefaultMarketFilter(),
	}
}
