package amboss

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

const (
	pageSize = 100
	maxPages = 50 // corta paginación si el servidor repite next_token
)

// FetchMarketListings devuelve las ofertas públicas admitidas por el filtro.
// Pagina automáticamente usando next_token hasta agotar los resultados.
func (c *Client) FetchMarketListings(ctx context.Context, filter domain.MarketFilter) ([]domain.MarketListing, error) {
	var all []domain.MarketListing
	token := ""
	more := false

	for page := 0; page < maxPages; page++ {
		vars := map[string]any{"limit": pageSize}
		if token != "" {
			vars["nextToken"] = token
		}

		var data listMarketOffersData
		if err := c.query(ctx, "ListMarketOffers", listMarketOffersQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("amboss.FetchMarketListings: %w", err)
		}

		offers := mapMarketOffers(data.ListMarketOffers.Offers)
		all = append(all, offers...)

		next := data.ListMarketOffers.NextToken
		slog.Debug("fetched market offers page",
			"count", len(offers),
			"total", len(all),
			"has_more", next != "",
		)

		more = next != "" && next != token
		if !more {
			break
		}
		token = next
	}
	if more {
		slog.Warn("market offers pagination capped, pool truncated",
			"pages", maxPages,
			"total", len(all),
		)
	}

	pool := filter.Apply(all)
	slog.Info("market offers fetched", "total", len(all), "admitted", len(pool))
	return pool, nil
}

// FetchOwnListings devuelve las ofertas del operador.
func (c *Client) FetchOwnListings(ctx context.Context) ([]domain.OwnListing, error) {
	var data getUserOffersData
	if err := c.query(ctx, "GetUserOffers", getUserOffersQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("amboss.FetchOwnListings: %w", err)
	}
	own := mapUserOffers(data.GetUserOffers.List)
	slog.Info("own offers fetched", "count", len(own))
	return own, nil
}
