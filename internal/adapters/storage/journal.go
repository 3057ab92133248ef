package storage

// journal.go: registro de auditoría de cada run.
//
//   - `runs`: una fila por run (dry o live) con el resumen de capital y mercado.
//   - `decisions`: una fila por template u oferta huérfana, con los pasos ejecutados.
//   - Nunca se lee para decidir: la fuente de verdad es el marketplace.
//   - Prune automático al abrir: runs > 90d (y sus decisiones).

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/offerbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME,
    dry_run      INTEGER  NOT NULL DEFAULT 0,
    balance      INTEGER  NOT NULL DEFAULT 0,
    fraction     REAL     NOT NULL DEFAULT 0,
    allocatable  INTEGER  NOT NULL DEFAULT 0,
    pool_size    INTEGER  NOT NULL DEFAULT 0,
    market_down  INTEGER  NOT NULL DEFAULT 0,
    own_listings INTEGER  NOT NULL DEFAULT 0,
    decisions    INTEGER  NOT NULL DEFAULT 0,
    mutations    INTEGER  NOT NULL DEFAULT 0,
    errors       INTEGER  NOT NULL DEFAULT 0,
    aborted      TEXT     NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS decisions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT    NOT NULL REFERENCES runs(run_id),
    template     TEXT    NOT NULL DEFAULT '',
    kind         TEXT    NOT NULL,
    listing_id   TEXT    NOT NULL DEFAULT '',
    fixed_fee    INTEGER,
    fee_rate_ppm INTEGER,
    apr          REAL,
    ceiling      INTEGER NOT NULL DEFAULT 0,
    reason       TEXT    NOT NULL DEFAULT '',
    steps        TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started  ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
`

const retentionRuns = 90 * 24 * time.Hour

// SQLiteJournal implementa ports.RunJournal usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada, aplica el schema
// y limpia runs antiguos.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	_ = j.pruneOld(context.Background())
	return j, nil
}

// SaveRun persiste el run y todas sus decisiones en una transacción.
func (j *SQLiteJournal) SaveRun(ctx context.Context, r *domain.RunReport) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	all := r.All()
	mutations := 0
	for _, d := range all {
		if d.Kind.Mutates() {
			mutations++
		}
	}

	var finished *time.Time
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt.UTC()
		finished = &t
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, started_at, finished_at, dry_run, balance, fraction, allocatable,
			 pool_size, market_down, own_listings, decisions, mutations, errors, aborted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.StartedAt.UTC(),
		finished,
		boolInt(r.DryRun),
		r.Capital.Balance,
		r.Capital.Fraction,
		r.Capital.TotalAllocatable,
		r.Market.PoolSize,
		boolInt(r.Market.Unavailable),
		r.OwnListings,
		len(all),
		mutations,
		len(r.Errors()),
		r.Aborted,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", r.RunID, err)
	}

	if len(all) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO decisions
				(run_id, template, kind, listing_id, fixed_fee, fee_rate_ppm, apr, ceiling, reason, steps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: prepare: %w", err)
		}
		defer stmt.Close()

		for _, d := range all {
			var fee, rate *int64
			var apr *float64
			if d.Pricing != nil {
				fee, rate, apr = &d.Pricing.FixedFee, &d.Pricing.FeeRatePPM, &d.Pricing.APR
			}
			if _, err := stmt.ExecContext(ctx,
				r.RunID, d.Template, string(d.Kind), d.ListingID,
				fee, rate, apr, d.Ceiling, d.Reason, formatSteps(d.Steps),
			); err != nil {
				return fmt.Errorf("storage.SaveRun: insert decision %s: %w", d.Label(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// RecentRuns devuelve los últimos runs, del más reciente al más antiguo.
func (j *SQLiteJournal) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, started_at, dry_run, balance, allocatable, pool_size,
		       decisions, mutations, errors, aborted
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var s domain.RunSummary
		var dry int
		if err := rows.Scan(
			&s.RunID, &s.StartedAt, &dry, &s.Balance, &s.TotalAllocatable, &s.PoolSize,
			&s.Decisions, &s.Mutations, &s.Errors, &s.Aborted,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentRuns: scan row: %w", err)
		}
		s.DryRun = dry == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// PendingFirstEnable devuelve las ofertas creadas en runs live que ningún run live
// posterior ha activado con éxito todavía.
func (j *SQLiteJournal) PendingFirstEnable(ctx context.Context) (map[string]bool, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT d.listing_id
		FROM decisions d JOIN runs r ON r.run_id = d.run_id
		WHERE r.dry_run = 0
		  AND d.listing_id != ''
		  AND d.steps LIKE 'create:%:ok%'
		  AND NOT EXISTS (
		      SELECT 1 FROM decisions e JOIN runs re ON re.run_id = e.run_id
		      WHERE re.dry_run = 0
		        AND e.listing_id = d.listing_id
		        AND e.steps LIKE '%enable:' || d.listing_id || ':ok%'
		  )`)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingFirstEnable: query: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.PendingFirstEnable: scan row: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// --- helpers internos ---

// pruneOld borra runs (y sus decisiones) más antiguos que retentionRuns.
// Un fallo solo se registra: el journal sigue siendo usable.
func (j *SQLiteJournal) pruneOld(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	if _, err := j.db.ExecContext(ctx,
		`DELETE FROM decisions WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`, cutoff,
	); err != nil {
		slog.Warn("storage: prune decisions failed", "err", err)
		return fmt.Errorf("storage.pruneOld: decisions: %w", err)
	}
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		slog.Warn("storage: prune runs failed", "err", err)
		return fmt.Errorf("storage.pruneOld: runs: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("storage: pruned old runs", "runs", n, "cutoff", cutoff)
	}
	return nil
}

// formatSteps serializa los pasos como "create:new-1:ok;disable:new-1:toggle returned false".
func formatSteps(steps []domain.StepResult) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		status := "ok"
		if !s.OK {
			status = s.Err
		}
		parts = append(parts, fmt.Sprintf("%s:%s:%s", s.Action, s.ListingID, status))
	}
	return strings.Join(parts, ";")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
