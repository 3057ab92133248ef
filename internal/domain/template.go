package domain

import (
	"errors"
	"fmt"
)

// BlocksPerDay es la conversión días → bloques usada por el marketplace para la duración.
const BlocksPerDay = 144

// ErrInvalidTemplate se devuelve cuando un template viola alguno de sus invariantes.
var ErrInvalidTemplate = errors.New("invalid template")

// Template es el estado deseado de una oferta de venta, configurado declarativamente.
// Solo se construye a través de NewTemplate, que valida los invariantes.
type Template struct {
	Name            string
	ChannelSizeSats int64
	DurationDays    int
	MinFixedFee     int64 // sats
	MaxFixedFee     int64 // sats
	MinFeeRatePPM   int64
	MaxFeeRatePPM   int64
	TargetAPRMin    float64 // informativo: fuera de rango solo genera warning
	TargetAPRMax    float64
	CapitalShare    float64 // fracción del capital asignable, 0..1
	Enabled         bool
}

// TemplateEntry es un template referenciado desde la configuración.
// Err != nil si la sección falta o no es válida; el reconciler lo reporta como ERROR.
type TemplateEntry struct {
	Name     string
	Template Template
	Err      error
}

// NewTemplate valida los invariantes y devuelve el Template.
func NewTemplate(t Template) (Template, error) {
	if t.Name == "" {
		return Template{}, fmt.Errorf("%w: empty name", ErrInvalidTemplate)
	}
	if t.ChannelSizeSats < 0 {
		return Template{}, fmt.Errorf("%w: %s: negative channel size %d", ErrInvalidTemplate, t.Name, t.ChannelSizeSats)
	}
	if t.DurationDays <= 0 {
		return Template{}, fmt.Errorf("%w: %s: duration_days must be > 0 (got %d)", ErrInvalidTemplate, t.Name, t.DurationDays)
	}
	if t.MinFixedFee < 0 || t.MinFeeRatePPM < 0 {
		return Template{}, fmt.Errorf("%w: %s: negative fee bound", ErrInvalidTemplate, t.Name)
	}
	if t.MinFixedFee > t.MaxFixedFee {
		return Template{}, fmt.Errorf("%w: %s: fixed fee min %d > max %d", ErrInvalidTemplate, t.Name, t.MinFixedFee, t.MaxFixedFee)
	}
	if t.MinFeeRatePPM > t.MaxFeeRatePPM {
		return Template{}, fmt.Errorf("%w: %s: fee rate min %d > max %d", ErrInvalidTemplate, t.Name, t.MinFeeRatePPM, t.MaxFeeRatePPM)
	}
	if t.TargetAPRMin > t.TargetAPRMax {
		return Template{}, fmt.Errorf("%w: %s: target apr min %.2f > max %.2f", ErrInvalidTemplate, t.Name, t.TargetAPRMin, t.TargetAPRMax)
	}
	if t.CapitalShare < 0 || t.CapitalShare > 1 {
		return Template{}, fmt.Errorf("%w: %s: capital share %.4f outside [0,1]", ErrInvalidTemplate, t.Name, t.CapitalShare)
	}
	return t, nil
}

// DurationBlocks devuelve la duración del template en bloques.
func (t Template) DurationBlocks() int64 {
	return int64(t.DurationDays) * BlocksPerDay
}

// Matches devuelve true si la oferta propia corresponde a este template.
// (tamaño, duración) es la clave natural entre Template y OwnListing.
func (t Template) Matches(l OwnListing) bool {
	return l.MinSize == t.ChannelSizeSats && l.DurationBlocks == t.DurationBlocks()
}
