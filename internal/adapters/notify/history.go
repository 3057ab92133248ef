package notify

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// PrintHistory imprime los últimos runs del journal.
func (c *Console) PrintHistory(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded yet.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Started", "Mode", "Balance", "Allocatable", "Pool", "Decisions", "Mutations", "Errors", "Aborted")
	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		table.Append(
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			mode,
			sats(r.Balance),
			sats(r.TotalAllocatable),
			fmt.Sprintf("%d", r.PoolSize),
			fmt.Sprintf("%d", r.Decisions),
			fmt.Sprintf("%d", r.Mutations),
			fmt.Sprintf("%d", r.Errors),
			orDash(r.Aborted),
		)
	}
	table.Render()
}
