package notify

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/auction-profile/internal/profile"
)

func formatPrice(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *p)
}

// FormatOpportunityMessage describes the tail nearest the live price.
func FormatOpportunityMessage(price float64, opp profile.Opportunity) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Price: %.2f\n", price))
	if opp.Kind != nil {
		sb.WriteString(fmt.Sprintf("Tail: %s at %s\n", *opp.Kind, formatPrice(opp.Price)))
	}
	sb.WriteString(fmt.Sprintf("Distance: %s\n", formatPrice(opp.DistanceFromCurrentPrice)))
	if opp.Confidence != nil {
		sb.WriteString(fmt.Sprintf("Confidence: %.3f\n", *opp.Confidence))
	}
	sb.WriteString(fmt.Sprintf("Reversion target (POC): %s", formatPrice(opp.ReversionTarget)))

	return sb.String()
}

// FormatSessionSummary creates the end-of-day summary body.
func FormatSessionSummary(a profile.Analytics) string {
	var sb strings.Builder
	st := a.SessionStats

	sb.WriteString(fmt.Sprintf("POC: %s\n", formatPrice(st.POC)))
	sb.WriteString(fmt.Sprintf("Value area: %s - %s\n", formatPrice(st.ValueAreaLow), formatPrice(st.ValueAreaHigh)))
	sb.WriteString(fmt.Sprintf("Range: %s - %s\n", formatPrice(st.SessionLow), formatPrice(st.SessionHigh)))
	sb.WriteString(fmt.Sprintf("IB: %s - %s\n", formatPrice(a.InitialBalance.Low), formatPrice(a.InitialBalance.High)))

	switch {
	case a.Extensions.AboveIB && a.Extensions.BelowIB:
		sb.WriteString("Extended both sides of IB\n")
	case a.Extensions.AboveIB:
		sb.WriteString("Extended above IB\n")
	case a.Extensions.BelowIB:
		sb.WriteString("Extended below IB\n")
	}

	sb.WriteString(fmt.Sprintf("Tails: %d", len(a.AllTails)))
	limit := 5
	if len(a.AllTails) < limit {
		limit = len(a.AllTails)
	}
	for i := 0; i < limit; i++ {
		t := a.AllTails[i]
		sb.WriteString(fmt.Sprintf("\n- %s %.2f (%.3f)", t.Kind, t.Price, t.Confidence))
	}
	if len(a.AllTails) > limit {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(a.AllTails)-limit))
	}

	return sb.String()
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}
	return fmt.Sprintf("Error: %v", err)
}
