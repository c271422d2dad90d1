package checkout

import (
	"math"

	"github.com/mirelabs/velora/internal/model"
)

// Quote is a priced plan/hours/addons combination.
type Quote struct {
	Total       float64
	AddonLabels []string
}

// Price computes the booking total: hourly base plus fixed addons, then
// percent addons applied multiplicatively on that subtotal, rounded to
// cents. Addon ids not present on the plan are ignored.
func Price(plan *model.Plan, hours int, addonIDs []string) Quote {
	selected := make(map[string]bool, len(addonIDs))
	for _, id := range addonIDs {
		selected[id] = true
	}

	subtotal := plan.PricePerHour * float64(hours)
	pctSum := 0.0
	var labels []string
	for _, a := range plan.Addons {
		if !selected[a.ID] {
			continue
		}
		labels = append(labels, a.Label)
		switch a.Type {
		case model.AddonFixed:
			subtotal += a.Value
		case model.AddonPercent:
			pctSum += a.Value
		}
	}

	total := subtotal * (1 + pctSum/100)
	return Quote{
		Total:       math.Round(total*100) / 100,
		AddonLabels: labels,
	}
}
