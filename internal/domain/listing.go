package domain

import "strings"

// ListingStatus es el estado de una oferta en el marketplace.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusInactive ListingStatus = "inactive"
	StatusOther    ListingStatus = "other"
)

// ParseStatus normaliza el estado devuelto por la API ("ACTIVE", "Inactive", ...).
func ParseStatus(s string) ListingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "enabled":
		return StatusActive
	case "inactive", "disabled", "paused":
		return StatusInactive
	default:
		return StatusOther
	}
}

const (
	SideSell    = "sell"
	TypeChannel = "channel"
)

// MarketListing es una oferta pública de un competidor. Solo lectura dentro de un run.
type MarketListing struct {
	ID                string
	Account           string // pubkey del vendedor
	Alias             string
	Status            ListingStatus
	Side              string
	Type              string
	FixedFee          int64 // sats
	FeeRatePPM        int64
	MinSize           int64
	MaxSize           int64
	MinDurationBlocks int64
	SellerScore       float64
}

// OwnListing es una oferta del operador. Nunca se borra: una oferta no deseada se desactiva.
type OwnListing struct {
	ID             string
	Status         ListingStatus
	Side           string
	Type           string
	FixedFee       int64
	FeeRatePPM     int64
	MinSize        int64
	MaxSize        int64
	DurationBlocks int64
	TotalSize      int64 // capacidad total respaldando la oferta
	LockedSize     int64 // ya comprometida con contrapartes
}

// Available devuelve la capacidad no comprometida (nunca negativa).
func (l OwnListing) Available() int64 {
	if l.LockedSize >= l.TotalSize {
		return 0
	}
	return l.TotalSize - l.LockedSize
}

// IsActive devuelve true si la oferta está publicada.
func (l OwnListing) IsActive() bool {
	return l.Status == StatusActive
}

// MarketFilter decide qué ofertas públicas entran en el pool de pricing.
type MarketFilter struct {
	Side           string
	Type           string
	MinSellerScore float64
	OwnAccount     string
	ExcludeIDs     map[string]bool
}

// DefaultMarketFilter devuelve el filtro para ofertas de venta de canales.
func DefaultMarketFilter() MarketFilter {
	return MarketFilter{Side: SideSell, Type: TypeChannel}
}

// Admit devuelve true si la oferta es comparable: activa, del lado/tipo gestionado,
// con score suficiente y que no pertenece al operador.
func (f MarketFilter) Admit(l MarketListing) bool {
	if l.Status != StatusActive {
		return false
	}
	if !strings.EqualFold(l.Side, f.Side) || !strings.EqualFold(l.Type, f.Type) {
		return false
	}
	if l.SellerScore < f.MinSellerScore {
		return false
	}
	if f.OwnAccount != "" && strings.EqualFold(l.Account, f.OwnAccount) {
		return false
	}
	if f.ExcludeIDs[l.ID] {
		return false
	}
	return true
}

// Apply devuelve las ofertas admitidas por el filtro.
func (f MarketFilter) Apply(listings []MarketListing) []MarketListing {
	out := make([]MarketListing, 0, len(listings))
	for _, l := range listings {
		if f.Admit(l) {
			out = append(out, l)
		}
	}
	return out
}

// Manages devuelve true si la oferta propia es del lado/tipo que este sistema gestiona.
func (f MarketFilter) Manages(l OwnListing) bool {
	return strings.EqualFold(l.Side, f.Side) && strings.EqualFold(l.Type, f.Type)
}

// OfferSpec son los campos enviados al crear o actualizar una oferta.
type OfferSpec struct {
	Template       string
	FixedFee       int64
	FeeRatePPM     int64
	MinSize        int64
	MaxSize        int64
	DurationBlocks int64
	TotalSize      int64
}

// NewOfferSpec construye la oferta para un template con el pricing y techo de capital dados.
// min_size = max_size = tamaño del canal; los caps coinciden con el precio propuesto.
func NewOfferSpec(t Template, p PricingResult, ceiling int64) OfferSpec {
	return OfferSpec{
		Template:       t.Name,
		FixedFee:       p.FixedFee,
		FeeRatePPM:     p.FeeRatePPM,
		MinSize:        t.ChannelSizeSats,
		MaxSize:        t.ChannelSizeSats,
		DurationBlocks: t.DurationBlocks(),
		TotalSize:      ceiling,
	}
}
