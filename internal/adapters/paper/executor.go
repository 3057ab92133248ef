package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// ActionToggle marks a recorded toggle; the executor does not know its direction.
const ActionToggle domain.Action = "toggle"

// Call is one intercepted mutation.
type Call struct {
	Action domain.Action
	ID     string
	Spec   domain.OfferSpec
}

// Executor is the dry-run OfferExecutor: it records every mutation and returns
// synthetic success without contacting the marketplace.
type Executor struct {
	mu    sync.Mutex
	calls []Call
}

// NewExecutor creates an empty dry-run executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// CreateOffer records the creation and returns a synthetic id.
func (e *Executor) CreateOffer(_ context.Context, spec domain.OfferSpec) (string, error) {
	id := fmt.Sprintf("dry-run-%s-%s", spec.Template, uuid.NewString()[:8])
	e.record(Call{Action: domain.ActionCreate, ID: id, Spec: spec})
	slog.Info("DRY RUN: would create offer",
		"template", spec.Template,
		"fixed_fee", spec.FixedFee,
		"ppm", spec.FeeRatePPM,
		"total_size", spec.TotalSize,
	)
	return id, nil
}

// UpdateOffer records the update.
func (e *Executor) UpdateOffer(_ context.Context, id string, spec domain.OfferSpec) error {
	e.record(Call{Action: domain.ActionUpdate, ID: id, Spec: spec})
	slog.Info("DRY RUN: would update offer",
		"id", id,
		"template", spec.Template,
		"fixed_fee", spec.FixedFee,
		"ppm", spec.FeeRatePPM,
		"total_size", spec.TotalSize,
	)
	return nil
}

// ToggleOffer records the toggle and reports success.
func (e *Executor) ToggleOffer(_ context.Context, id string) (bool, error) {
	e.record(Call{Action: ActionToggle, ID: id})
	slog.Info("DRY RUN: would toggle offer", "id", id)
	return true, nil
}

// Calls returns a copy of the recorded mutations, in order.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *Executor) record(c Call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
}
