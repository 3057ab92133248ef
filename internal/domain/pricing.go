package domain

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// PricingSource indica de dónde sale la propuesta de precio.
type PricingSource string

const (
	SourcePercentile   PricingSource = "percentile"
	SourceNoMarketData PricingSource = "no market data"
)

// PricingResult es la propuesta de precio para un template en este run. No se persiste.
type PricingResult struct {
	FixedFee   int64
	FeeRatePPM int64
	APR        float64 // rendimiento anualizado en %, 2 decimales

	Source         PricingSource
	BenchmarkIndex int    // -1 sin datos de mercado
	BenchmarkID    string // oferta usada como referencia
	PoolSize       int

	// Valores del benchmark antes de aplicar los límites del template.
	RawFixedFee   int64
	RawFeeRatePPM int64

	Warning string // APR fuera del rango objetivo (no bloquea)
}

// SortPool ordena el pool por competitividad: fee rate ascendente, luego fee fijo,
// luego id para que el orden sea determinista ante empates.
func SortPool(pool []MarketListing) []MarketListing {
	sorted := make([]MarketListing, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.FeeRatePPM != b.FeeRatePPM {
			return a.FeeRatePPM < b.FeeRatePPM
		}
		if a.FixedFee != b.FixedFee {
			return a.FixedFee < b.FixedFee
		}
		return a.ID < b.ID
	})
	return sorted
}

// BenchmarkIndex devuelve clamp(round((n-1)·p/100) + offset - 1, 0, n-1).
// offset es 1-based: 1 = exactamente en el percentil, 2 = una posición menos competitiva.
// Devuelve -1 si el pool está vacío.
func BenchmarkIndex(poolSize int, percentile float64, offset int) int {
	if poolSize <= 0 {
		return -1
	}
	idx := int(math.Round(float64(poolSize-1)*percentile/100)) + offset - 1
	return int(Clamp(int64(idx), 0, int64(poolSize-1)))
}

// Clamp limita x al intervalo [lo, hi]. Es idempotente.
func Clamp(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// AnnualizedYield calcula el APR en % de vender un canal:
// (fee + ppm/1e6 × size) / size × 365/días × 100, redondeado a 2 decimales.
// Devuelve 0 si size o días no son positivos.
func AnnualizedYield(fixedFee, feeRatePPM, sizeSats int64, durationDays int) float64 {
	if sizeSats <= 0 || durationDays <= 0 {
		return 0
	}
	size := decimal.NewFromInt(sizeSats)
	variable := decimal.NewFromInt(feeRatePPM).Div(decimal.NewFromInt(1_000_000)).Mul(size)
	total := decimal.NewFromInt(fixedFee).Add(variable)
	apr := total.Div(size).
		Mul(decimal.NewFromInt(365)).
		Div(decimal.NewFromInt(int64(durationDays))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return apr.InexactFloat64()
}
