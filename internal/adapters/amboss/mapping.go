package amboss

import (
	"log/slog"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// Cuando la API omite side/type se asume una venta de canal: es lo único que lista Magma.
func sideOrDefault(s string) string {
	if s == "" {
		return domain.SideSell
	}
	return s
}

func typeOrDefault(s string) string {
	if s == "" {
		return domain.TypeChannel
	}
	return s
}

// statusOrActive trata un status ausente en el listado público como activo:
// listMarketOffers solo devuelve ofertas publicadas.
func statusOrActive(s string) domain.ListingStatus {
	if s == "" {
		return domain.StatusActive
	}
	return domain.ParseStatus(s)
}

// mapMarketOffers convierte los DTOs de listMarketOffers a domain.MarketListing.
func mapMarketOffers(raw []marketOffer) []domain.MarketListing {
	out := make([]domain.MarketListing, 0, len(raw))
	for _, r := range raw {
		if r.OfferID == "" {
			slog.Debug("skipping market offer without id")
			continue
		}
		out = append(out, mapMarketOffer(r))
	}
	return out
}

func mapMarketOffer(r marketOffer) domain.MarketListing {
	return domain.MarketListing{
		ID:                r.OfferID,
		Account:           r.NodeDetails.Pubkey,
		Alias:             r.NodeDetails.Alias,
		Status:            statusOrActive(r.Status),
		Side:              sideOrDefault(r.Side),
		Type:              typeOrDefault(r.Type),
		FixedFee:          int64(r.BaseFee),
		FeeRatePPM:        int64(r.FeeRate),
		MinSize:           int64(r.MinChannelSize),
		MaxSize:           int64(r.MaxChannelSize),
		MinDurationBlocks: int64(r.MinChannelDuration),
		SellerScore:       float64(r.SellerScore),
	}
}

// mapUserOffers convierte los DTOs de getUserOffers a domain.OwnListing.
// Las ofertas sin offer_details no se pueden emparejar y se descartan con warning.
func mapUserOffers(raw []userOffer) []domain.OwnListing {
	out := make([]domain.OwnListing, 0, len(raw))
	for _, r := range raw {
		if r.OfferDetails == nil {
			slog.Warn("own offer without details, skipping", "id", r.ID)
			continue
		}
		d := r.OfferDetails
		out = append(out, domain.OwnListing{
			ID:             r.ID,
			Status:         domain.ParseStatus(r.Status),
			Side:           sideOrDefault(r.Side),
			Type:           typeOrDefault(r.Type),
			FixedFee:       int64(d.BaseFee),
			FeeRatePPM:     int64(d.FeeRate),
			MinSize:        int64(d.MinSize),
			MaxSize:        int64(d.MaxSize),
			DurationBlocks: int64(d.MinBlockLength),
			TotalSize:      int64(d.TotalSize),
			LockedSize:     int64(r.LockedSize),
		})
	}
	return out
}

// toOfferInput construye el input de mutación. Los caps coinciden con el precio.
func toOfferInput(s domain.OfferSpec) offerInput {
	return offerInput{
		BaseFee:        s.FixedFee,
		BaseFeeCap:     s.FixedFee,
		FeeRate:        s.FeeRatePPM,
		FeeRateCap:     s.FeeRatePPM,
		MinSize:        s.MinSize,
		MaxSize:        s.MaxSize,
		MinBlockLength: s.DurationBlocks,
		TotalSize:      s.TotalSize,
	}
}
