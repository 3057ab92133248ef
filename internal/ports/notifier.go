package ports

import (
	"context"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// Notifier presenta el resultado de cada run al operador.
type Notifier interface {
	// Notify publica el resumen del run (tabla en consola, texto en chat).
	Notify(ctx context.Context, report *domain.RunReport) error

	// Alert envía un aviso crítico (run abortado, fallo de prerequisitos).
	Alert(ctx context.Context, msg string) error
}
