package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// Analyzer proposes a price for a template from the market pool. It is pure.
type Analyzer struct {
	percentile   float64
	offset       int
	globalMinPPM int64
}

// NewAnalyzer builds an Analyzer from the run config.
func NewAnalyzer(cfg Config) Analyzer {
	return Analyzer{
		percentile:   cfg.Percentile,
		offset:       cfg.PositionOffset,
		globalMinPPM: cfg.GlobalMinPPM,
	}
}

// Analyze prices t against pool, which must already be sorted with domain.SortPool.
func (a Analyzer) Analyze(t domain.Template, pool []domain.MarketListing) domain.PricingResult {
	res := domain.PricingResult{
		PoolSize:       len(pool),
		BenchmarkIndex: -1,
	}

	if len(pool) == 0 {
		res.Source = domain.SourceNoMarketData
		res.RawFixedFee = t.MinFixedFee
		res.RawFeeRatePPM = t.MinFeeRatePPM
		res.FixedFee = t.MinFixedFee
		res.FeeRatePPM = a.applyFloor(t.MinFeeRatePPM)
	} else {
		idx := domain.BenchmarkIndex(len(pool), a.percentile, a.offset)
		bench := pool[idx]
		res.Source = domain.SourcePercentile
		res.BenchmarkIndex = idx
		res.BenchmarkID = bench.ID
		res.RawFixedFee = bench.FixedFee
		res.RawFeeRatePPM = bench.FeeRatePPM
		res.FixedFee = domain.Clamp(bench.FixedFee, t.MinFixedFee, t.MaxFixedFee)
		res.FeeRatePPM = a.applyFloor(domain.Clamp(bench.FeeRatePPM, t.MinFeeRatePPM, t.MaxFeeRatePPM))
	}

	res.APR = domain.AnnualizedYield(res.FixedFee, res.FeeRatePPM, t.ChannelSizeSats, t.DurationDays)
	if t.TargetAPRMin > 0 && (res.APR < t.TargetAPRMin || res.APR > t.TargetAPRMax) {
		res.Warning = fmt.Sprintf("APR %.2f%% outside target %.2f%%-%.2f%%", res.APR, t.TargetAPRMin, t.TargetAPRMax)
		slog.Warn("reconcile: yield outside target range",
			"template", t.Name,
			"apr", res.APR,
			"target_min", t.TargetAPRMin,
			"target_max", t.TargetAPRMax,
		)
	}

	slog.Debug("reconcile: priced template",
		"template", t.Name,
		"source", res.Source,
		"benchmark", res.BenchmarkID,
		"raw_fee", res.RawFixedFee,
		"raw_ppm", res.RawFeeRatePPM,
		"fee", res.FixedFee,
		"ppm", res.FeeRatePPM,
		"apr", res.APR,
	)
	return res
}

func (a Analyzer) applyFloor(ppm int64) int64 {
	if a.globalMinPPM > ppm {
		return a.globalMinPPM
	}
	return ppm
}
