package notify

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// FormatSummary construye el texto compacto enviado al chat.
func FormatSummary(r *domain.RunReport) string {
	var b strings.Builder
	if r.DryRun {
		b.WriteString("[DRY RUN] ")
	}
	b.WriteString("⚡ Magma offers\n")

	if r.Capital.Balance > 0 || r.Capital.TotalAllocatable > 0 {
		fmt.Fprintf(&b, "💰 Balance %s sats, for sale %s sats\n", sats(r.Capital.Balance), sats(r.Capital.TotalAllocatable))
	} else {
		b.WriteString("💰 Capital: no data\n")
	}

	switch {
	case r.Market.Unavailable:
		b.WriteString("📊 Market: unavailable, fallback pricing\n")
	case r.Market.PoolSize == 0:
		b.WriteString("📊 Market: no data\n")
	default:
		fmt.Fprintf(&b, "📊 Market: %d offers, fee %d–%d sats, rate %d–%d ppm\n",
			r.Market.PoolSize, r.Market.MinFixedFee, r.Market.MaxFixedFee, r.Market.MinFeeRate, r.Market.MaxFeeRate)
	}

	for _, d := range r.Decisions {
		fmt.Fprintf(&b, "%s %s: %s", d.Kind.Icon(), d.Template, d.Kind)
		if d.Pricing != nil && d.Kind != domain.KindError {
			fmt.Fprintf(&b, " (%d sats + %d ppm, APR %.2f%%)", d.Pricing.FixedFee, d.Pricing.FeeRatePPM, d.Pricing.APR)
		}
		if d.Reason != "" {
			fmt.Fprintf(&b, " – %s", d.Reason)
		}
		if note := d.FirstEnableNote(); note != "" {
			fmt.Fprintf(&b, " – %s", note)
		}
		if failed := failedSteps(d); failed != "" {
			fmt.Fprintf(&b, " – %s", failed)
		}
		b.WriteString("\n")
	}

	for _, d := range r.Orphans {
		fmt.Fprintf(&b, "%s orphan %s: %s", d.Kind.Icon(), d.ListingID, d.Kind)
		if failed := failedSteps(d); failed != "" {
			fmt.Fprintf(&b, " – %s", failed)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func failedSteps(d domain.Decision) string {
	var out []string
	for _, s := range d.Steps {
		if !s.OK {
			out = append(out, fmt.Sprintf("%s failed: %s", s.Action, s.Err))
		}
	}
	return strings.Join(out, "; ")
}
