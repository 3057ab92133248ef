package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/alejandrodnm/offerbot/internal/domain"
	"github.com/alejandrodnm/offerbot/internal/ports"
)

var errToggleRejected = errors.New("toggle returned false")

// Apply executes the planned actions: templates in order, then orphans.
// Failures are recorded per step and never retried; later decisions still run.
// Toggles are applied against the status observed at plan time without re-reading it.
func (e *Engine) Apply(ctx context.Context, exec ports.OfferExecutor, report *domain.RunReport) {
	for i := range report.Decisions {
		e.applyDecision(ctx, exec, &report.Decisions[i])
	}
	for i := range report.Orphans {
		e.applyDecision(ctx, exec, &report.Orphans[i])
	}
}

func (e *Engine) applyDecision(ctx context.Context, exec ports.OfferExecutor, d *domain.Decision) {
	if len(d.Actions) == 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile: panic applying decision",
				"label", d.Label(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			d.Steps = append(d.Steps, domain.StepResult{ListingID: d.ListingID, Err: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	for _, action := range d.Actions {
		step := e.execute(ctx, exec, d, action)
		d.Steps = append(d.Steps, step)
		if step.OK {
			continue
		}

		slog.Error("reconcile: action failed",
			"label", d.Label(),
			"action", action,
			"listing", step.ListingID,
			"err", step.Err,
		)
		if d.Kind == domain.KindCreate && action == domain.ActionDisable {
			d.Kind = domain.KindCreateButToggleFail
		}
		// Remaining steps depend on this one (e.g. enable after a failed update).
		return
	}
}

func (e *Engine) execute(ctx context.Context, exec ports.OfferExecutor, d *domain.Decision, action domain.Action) domain.StepResult {
	step := domain.StepResult{Action: action, ListingID: d.ListingID}

	var err error
	switch action {
	case domain.ActionCreate:
		var id string
		id, err = exec.CreateOffer(ctx, *d.Spec)
		if err == nil {
			d.ListingID = id
			step.ListingID = id
		}
	case domain.ActionUpdate:
		err = exec.UpdateOffer(ctx, d.ListingID, *d.Spec)
	case domain.ActionEnable, domain.ActionDisable:
		var ok bool
		ok, err = exec.ToggleOffer(ctx, d.ListingID)
		if err == nil && !ok {
			err = errToggleRejected
		}
	default:
		err = fmt.Errorf("unknown action %q", action)
	}

	if err != nil {
		step.Err = err.Error()
		return step
	}
	step.OK = true
	slog.Info("reconcile: action applied", "label", d.Label(), "action", action, "listing", step.ListingID)
	return step
}
