package ports

import (
	"context"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// MarketReader lee el estado del marketplace. Nunca se sustituye en dry-run.
type MarketReader interface {
	// FetchMarketListings devuelve las ofertas públicas admitidas por el filtro.
	// Pagina automáticamente hasta obtener todos los resultados.
	FetchMarketListings(ctx context.Context, filter domain.MarketFilter) ([]domain.MarketListing, error)

	// FetchOwnListings devuelve las ofertas del operador con su capacidad bloqueada.
	FetchOwnListings(ctx context.Context) ([]domain.OwnListing, error)
}

// CapitalSource devuelve el saldo gastable del wallet, excluyendo reservas.
type CapitalSource interface {
	SpendableBalance(ctx context.Context) (int64, error)
}
