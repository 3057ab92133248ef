package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// Console implementa ports.Notifier escribiendo tablas a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario (tests).
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify imprime el resumen completo del run.
func (c *Console) Notify(_ context.Context, r *domain.RunReport) error {
	prefix := ""
	if r.DryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Fprintf(c.out, "\n%s=== Magma offer reconciliation %s ===\n", prefix, r.StartedAt.Local().Format("2006-01-02 15:04:05"))

	c.printCapital(r)
	c.printMarket(r)
	c.printDecisions(r)
	c.printOrphans(r)

	if errs := r.Errors(); len(errs) > 0 {
		fmt.Fprintf(c.out, "\n  ❌ %d decision(s) with errors\n", len(errs))
	}
	fmt.Fprintln(c.out)
	return nil
}

// Alert imprime un aviso crítico.
func (c *Console) Alert(_ context.Context, msg string) error {
	fmt.Fprintf(c.out, "\n  🚨 CRITICAL: %s\n\n", msg)
	return nil
}

func (c *Console) printCapital(r *domain.RunReport) {
	fmt.Fprintln(c.out, "\n-- Capital --")
	if r.Capital.Balance == 0 && r.Capital.TotalAllocatable == 0 {
		fmt.Fprintln(c.out, "  no data")
		return
	}
	fmt.Fprintf(c.out, "  Balance: %s sats | for sale (%.0f%%): %s sats\n",
		sats(r.Capital.Balance), r.Capital.Fraction*100, sats(r.Capital.TotalAllocatable))
}

func (c *Console) printMarket(r *domain.RunReport) {
	fmt.Fprintln(c.out, "\n-- Market --")
	m := r.Market
	if m.Unavailable {
		fmt.Fprintln(c.out, "  ⚠ market data unavailable this run, fallback pricing used")
	}
	if m.PoolSize == 0 {
		fmt.Fprintln(c.out, "  no data")
		return
	}
	fmt.Fprintf(c.out, "  %d comparable offers | fixed fee %d–%d sats | rate %d–%d ppm\n",
		m.PoolSize, m.MinFixedFee, m.MaxFixedFee, m.MinFeeRate, m.MaxFeeRate)
}

func (c *Console) printDecisions(r *domain.RunReport) {
	fmt.Fprintln(c.out, "\n-- Templates --")
	if r.OwnListingsUnavailable {
		fmt.Fprintln(c.out, "  ⚠ own offers unavailable this run, creations skipped")
	}
	if len(r.Decisions) == 0 {
		fmt.Fprintln(c.out, "  no data")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("", "Template", "Decision", "Offer", "Before", "After", "APR", "Ceiling", "Result")
	for _, d := range r.Decisions {
		table.Append(
			d.Kind.Icon(),
			d.Template,
			string(d.Kind),
			orDash(d.ListingID),
			before(d),
			after(d),
			apr(d),
			sats(d.Ceiling),
			result(d),
		)
	}
	table.Render()

	for _, d := range r.Decisions {
		if d.Pricing != nil && d.Pricing.Warning != "" {
			fmt.Fprintf(c.out, "  ⚠ %s: %s\n", d.Template, d.Pricing.Warning)
		}
		if note := d.FirstEnableNote(); note != "" {
			fmt.Fprintf(c.out, "  🟢 %s: offer %s %s\n", d.Template, d.ListingID, note)
		}
	}
}

func (c *Console) printOrphans(r *domain.RunReport) {
	fmt.Fprintln(c.out, "\n-- Orphan sweep --")
	if len(r.Orphans) == 0 {
		fmt.Fprintln(c.out, "  no active orphan offers")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("", "Offer", "Size", "Days", "Fee/PPM", "Result")
	for _, d := range r.Orphans {
		size, days, price := "-", "-", "-"
		if d.Before != nil {
			size = sats(d.Before.MinSize)
			days = fmt.Sprintf("%d", d.Before.DurationBlocks/domain.BlocksPerDay)
			price = fmt.Sprintf("%d/%d", d.Before.FixedFee, d.Before.FeeRatePPM)
		}
		table.Append(d.Kind.Icon(), d.ListingID, size, days, price, result(d))
	}
	table.Render()
}

func before(d domain.Decision) string {
	if d.Before == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d %s", d.Before.FixedFee, d.Before.FeeRatePPM, d.Before.Status)
}

func after(d domain.Decision) string {
	if d.Pricing == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", d.Pricing.FixedFee, d.Pricing.FeeRatePPM)
}

func apr(d domain.Decision) string {
	if d.Pricing == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", d.Pricing.APR)
}

// result resume los pasos ejecutados, o el motivo si no hubo ninguno.
func result(d domain.Decision) string {
	if len(d.Steps) == 0 {
		if d.Reason != "" {
			return d.Reason
		}
		if d.Kind.Mutates() {
			return "planned"
		}
		return "-"
	}
	parts := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		if s.OK {
			parts = append(parts, string(s.Action)+" ok")
		} else {
			parts = append(parts, fmt.Sprintf("%s FAILED: %s", s.Action, s.Err))
		}
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sats formatea con separador de miles: 1234567 → 1,234,567.
func sats(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
