package domain

import "github.com/shopspring/decimal"

// Capital es el resumen de capital del run.
type Capital struct {
	Balance          int64   // saldo gastable del wallet (sin reservas)
	Fraction         float64 // fracción destinada a ventas
	TotalAllocatable int64   // floor(balance × fraction)
}

// NewCapital calcula el capital total asignable del run.
func NewCapital(balance int64, fraction float64) Capital {
	return Capital{
		Balance:          balance,
		Fraction:         fraction,
		TotalAllocatable: floorMul(balance, fraction),
	}
}

// Allocation es el techo de capital de un template en este run.
type Allocation struct {
	Ceiling  int64
	Adequate bool // ceiling >= size && size > 0
}

// Allocate convierte el capital asignable y el share del template en su techo.
func (c Capital) Allocate(t Template) Allocation {
	ceiling := floorMul(c.TotalAllocatable, t.CapitalShare)
	return Allocation{
		Ceiling:  ceiling,
		Adequate: t.ChannelSizeSats > 0 && ceiling >= t.ChannelSizeSats,
	}
}

// floorMul devuelve floor(n × f) sin errores de redondeo binario.
func floorMul(n int64, f float64) int64 {
	if n <= 0 || f <= 0 {
		return 0
	}
	return decimal.NewFromInt(n).Mul(decimal.NewFromFloat(f)).Floor().IntPart()
}
