package ports

import (
	"context"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// OfferExecutor performs the mutating marketplace calls.
// The live implementation talks to the marketplace; the dry-run one records and fakes success.
type OfferExecutor interface {
	// CreateOffer publishes a new listing and returns its remote id.
	CreateOffer(ctx context.Context, spec domain.OfferSpec) (string, error)

	// UpdateOffer replaces fee and capacity fields of an existing listing.
	UpdateOffer(ctx context.Context, id string, spec domain.OfferSpec) error

	// ToggleOffer flips active⇄inactive. The caller knows the intended direction;
	// a false result is a failure, not a no-op.
	ToggleOffer(ctx context.Context, id string) (bool, error)
}

// Confirmer asks the operator to approve a live run before any mutation.
type Confirmer interface {
	Confirm(ctx context.Context, summary string) (bool, error)
}
