package ports

import (
	"context"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// RunJournal persiste cada run y sus decisiones. Solo auditoría: el engine nunca lo lee para decidir.
type RunJournal interface {
	// SaveRun persiste el resumen del run y una fila por decisión.
	SaveRun(ctx context.Context, report *domain.RunReport) error

	// RecentRuns devuelve los últimos runs, más recientes primero.
	RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// CreationLog lista las ofertas creadas en runs live que aún no se han activado nunca.
// Solo se usa para avisar en el reporte cuando una oferta nueva sale a mercado.
type CreationLog interface {
	PendingFirstEnable(ctx context.Context) (map[string]bool, error)
}

// MetricsSink exporta las métricas de un run.
type MetricsSink interface {
	Record(report *domain.RunReport) error
}
