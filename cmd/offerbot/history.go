package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/offerbot/internal/adapters/notify"
	"github.com/alejandrodnm/offerbot/internal/ports"
)

func printHistory(ctx context.Context, journal ports.RunJournal, console *notify.Console, limit int) error {
	runs, err := journal.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("printHistory: %w", err)
	}
	console.PrintHistory(runs)
	return nil
}
