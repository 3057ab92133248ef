// Package schedule ejecuta pases de reconciliación periódicos dentro del proceso.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job es un pase completo. El error solo se registra: el siguiente tick vuelve a intentarlo.
type Job func(ctx context.Context) error

// Runner envuelve robfig/cron. Un pase lento nunca se solapa con el siguiente.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// New crea el runner. Los jobs reciben baseCtx.
func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	logger := cron.PrintfLogger(slogPrintf{})
	return &Runner{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		baseCtx: baseCtx,
	}
}

// Add registra el job con una expresión cron estándar (5 campos) o descriptor (@every 15m).
func (r *Runner) Add(spec string, name string, job Job) error {
	_, err := r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		slog.Info("schedule: run started", "job", name)
		if err := job(r.baseCtx); err != nil {
			slog.Warn("schedule: run failed", "job", name, "err", err)
			return
		}
		slog.Info("schedule: run finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("schedule.Add: invalid spec %q: %w", spec, err)
	}
	return nil
}

// Run arranca el scheduler y bloquea hasta que ctx se cancela; espera a que
// termine el pase en curso antes de volver.
func (r *Runner) Run(ctx context.Context) {
	r.cron.Start()
	slog.Info("schedule: started", "entries", len(r.cron.Entries()))
	<-ctx.Done()
	stopped := r.cron.Stop()
	<-stopped.Done()
	slog.Info("schedule: stopped")
}

type slogPrintf struct{}

func (slogPrintf) Printf(format string, args ...any) {
	slog.Debug("schedule: " + fmt.Sprintf(format, args...))
}
