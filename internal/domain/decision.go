package domain

import (
	"fmt"
	"time"
)

// DecisionKind es el resultado de reconciliar un template (u oferta huérfana) en un run.
type DecisionKind string

const (
	KindCreate              DecisionKind = "CREATE"
	KindUpdate              DecisionKind = "UPDATE"
	KindEnable              DecisionKind = "ENABLE"
	KindDisable             DecisionKind = "DISABLE"
	KindUpdateEnable        DecisionKind = "UPDATE+ENABLE"
	KindUpdateDisable       DecisionKind = "UPDATE+DISABLE"
	KindNoChange            DecisionKind = "NO_CHANGE"
	KindSkipCreate          DecisionKind = "SKIP_CREATE"
	KindError               DecisionKind = "ERROR"
	KindCreateButToggleFail DecisionKind = "CREATE_BUT_TOGGLE_FAIL"
)

// KindFor compone el tipo de decisión a partir de las acciones necesarias.
func KindFor(update, enable, disable bool) DecisionKind {
	switch {
	case update && enable:
		return KindUpdateEnable
	case update && disable:
		return KindUpdateDisable
	case update:
		return KindUpdate
	case enable:
		return KindEnable
	case disable:
		return KindDisable
	default:
		return KindNoChange
	}
}

// Mutates devuelve true si la decisión implica llamadas de escritura al marketplace.
func (k DecisionKind) Mutates() bool {
	switch k {
	case KindNoChange, KindSkipCreate, KindError:
		return false
	default:
		return true
	}
}

// Icon devuelve el emoji usado en los resúmenes.
func (k DecisionKind) Icon() string {
	switch k {
	case KindCreate:
		return "🚀"
	case KindUpdate, KindUpdateEnable, KindUpdateDisable:
		return "✅"
	case KindEnable:
		return "🟢"
	case KindDisable:
		return "⏸"
	case KindSkipCreate:
		return "⚠️"
	case KindError, KindCreateButToggleFail:
		return "❌"
	default:
		return "ℹ️"
	}
}

// Action es una llamada primitiva del executor.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionEnable  Action = "enable"  // toggle inactive → active
	ActionDisable Action = "disable" // toggle active → inactive
)

// StepResult es el resultado de ejecutar una acción.
type StepResult struct {
	Action    Action
	ListingID string
	OK        bool
	Err       string
}

// Skip reasons de SKIP_CREATE.
const (
	ReasonDisabled           = "disabled"
	ReasonInvalidSize        = "invalid size"
	ReasonInsufficientCap    = "insufficient capital"
	ReasonOwnListingsMissing = "own listings unavailable"
)

// Decision es la decisión de reconciliación de un template u oferta huérfana.
type Decision struct {
	Template  string // vacío para huérfanas
	Kind      DecisionKind
	ListingID string
	Pricing   *PricingResult
	Ceiling   int64
	Active    bool        // template habilitado y con capital suficiente
	Before    *OwnListing // oferta emparejada antes de aplicar cambios
	Spec      *OfferSpec  // campos a enviar en CREATE/UPDATE
	Actions   []Action    // acciones planificadas, en orden
	Reason    string      // motivo de SKIP_CREATE o ERROR
	Steps     []StepResult

	// FirstEnable: el ENABLE pone en mercado por primera vez una oferta creada por un run anterior.
	FirstEnable bool
}

// Orphan devuelve true si la decisión corresponde a una oferta sin template.
func (d Decision) Orphan() bool {
	return d.Template == ""
}

// FirstEnableNote devuelve el aviso de salida a mercado, vacío si no aplica.
func (d Decision) FirstEnableNote() string {
	if !d.FirstEnable {
		return ""
	}
	return "enabled after creation"
}

// Failed devuelve true si la decisión es ERROR o algún paso ejecutado falló.
func (d Decision) Failed() bool {
	if d.Kind == KindError || d.Kind == KindCreateButToggleFail {
		return true
	}
	for _, s := range d.Steps {
		if !s.OK {
			return true
		}
	}
	return false
}

// Label devuelve el nombre mostrado en reportes.
func (d Decision) Label() string {
	if d.Orphan() {
		return fmt.Sprintf("orphan %s", d.ListingID)
	}
	return d.Template
}

// MarketSummary resume el pool de mercado filtrado.
type MarketSummary struct {
	PoolSize    int
	MinFixedFee int64
	MaxFixedFee int64
	MinFeeRate  int64
	MaxFeeRate  int64
	Unavailable bool // la lectura del mercado falló en este run
}

// SummarizeMarket calcula los rangos de fee y ppm del pool.
func SummarizeMarket(pool []MarketListing) MarketSummary {
	s := MarketSummary{PoolSize: len(pool)}
	for i, l := range pool {
		if i == 0 || l.FixedFee < s.MinFixedFee {
			s.MinFixedFee = l.FixedFee
		}
		if i == 0 || l.FixedFee > s.MaxFixedFee {
			s.MaxFixedFee = l.FixedFee
		}
		if i == 0 || l.FeeRatePPM < s.MinFeeRate {
			s.MinFeeRate = l.FeeRatePPM
		}
		if i == 0 || l.FeeRatePPM > s.MaxFeeRate {
			s.MaxFeeRate = l.FeeRatePPM
		}
	}
	return s
}

// RunReport agrega todo lo producido por un pase de reconciliación.
type RunReport struct {
	RunID                  string
	StartedAt              time.Time
	FinishedAt             time.Time
	DryRun                 bool
	Capital                Capital
	Market                 MarketSummary
	OwnListings            int
	OwnListingsUnavailable bool
	Decisions              []Decision // uno por template, en orden de configuración
	Orphans                []Decision
	Aborted                string // motivo si el run se abortó
}

// All devuelve decisiones de templates seguidas de las huérfanas.
func (r *RunReport) All() []Decision {
	all := make([]Decision, 0, len(r.Decisions)+len(r.Orphans))
	all = append(all, r.Decisions...)
	return append(all, r.Orphans...)
}

// HasChanges devuelve true si algún template u huérfana implicó escrituras.
func (r *RunReport) HasChanges() bool {
	for _, d := range r.All() {
		if d.Kind.Mutates() {
			return true
		}
	}
	return false
}

// Errors devuelve las decisiones fallidas.
func (r *RunReport) Errors() []Decision {
	var out []Decision
	for _, d := range r.All() {
		if d.Failed() {
			out = append(out, d)
		}
	}
	return out
}

// CountByKind cuenta decisiones por tipo (incluye huérfanas).
func (r *RunReport) CountByKind() map[DecisionKind]int {
	counts := make(map[DecisionKind]int)
	for _, d := range r.All() {
		counts[d.Kind]++
	}
	return counts
}

// RunSummary es una fila del journal de runs.
type RunSummary struct {
	RunID            string
	StartedAt        time.Time
	DryRun           bool
	Balance          int64
	TotalAllocatable int64
	PoolSize         int
	Decisions        int
	Mutations        int
	Errors           int
	Aborted          string
}
