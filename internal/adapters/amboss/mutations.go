package amboss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// CreateOffer publica una oferta nueva y devuelve su id.
func (c *Client) CreateOffer(ctx context.Context, spec domain.OfferSpec) (string, error) {
	vars := map[string]any{"input": toOfferInput(spec)}

	var data createOfferData
	if err := c.mutate(ctx, "CreateOffer", createOfferMutation, vars, &data); err != nil {
		return "", fmt.Errorf("amboss.CreateOffer: %w", err)
	}
	if data.CreateOffer == "" {
		return "", errors.New("amboss.CreateOffer: empty offer id in response")
	}
	slog.Info("offer created", "template", spec.Template, "id", data.CreateOffer)
	return data.CreateOffer, nil
}

// UpdateOffer reemplaza fees y capacidad de una oferta existente.
func (c *Client) UpdateOffer(ctx context.Context, id string, spec domain.OfferSpec) error {
	vars := map[string]any{"id": id, "input": toOfferInput(spec)}

	var data updateOfferData
	if err := c.mutate(ctx, "UpdateOfferDetails", updateOfferMutation, vars, &data); err != nil {
		return fmt.Errorf("amboss.UpdateOffer %s: %w", id, err)
	}
	if data.UpdateOfferDetails == nil {
		return fmt.Errorf("amboss.UpdateOffer %s: empty response", id)
	}
	slog.Info("offer updated", "template", spec.Template, "id", id)
	return nil
}

// ToggleOffer alterna active⇄inactive. Devuelve el booleano de la API sin reinterpretarlo.
func (c *Client) ToggleOffer(ctx context.Context, id string) (bool, error) {
	var data toggleOfferData
	if err := c.mutate(ctx, "ToggleOffer", toggleOfferMutation, map[string]any{"id": id}, &data); err != nil {
		return false, fmt.Errorf("amboss.ToggleOffer %s: %w", id, err)
	}
	slog.Info("offer toggled", "id", id, "ok", data.ToggleOffer)
	return data.ToggleOffer, nil
}
