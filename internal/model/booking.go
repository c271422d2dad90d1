package model

// Addon pricing behavior. Percent addons apply multiplicatively to the
// fixed-inclusive subtotal.
const (
	AddonFixed   = "fixed"
	AddonPercent = "percent"
)

type Addon struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Plan is one bookable tariff of a profile, as returned by the scheduling
// backend's product-config endpoint.
type Plan struct {
	Name            string   `json:"name"`
	PricePerHour    float64  `json:"price_per_hour"`
	BaseStepMinutes int      `json:"base_step_minutes"`
	HoursOptions    []int    `json:"hours_options"`
	Addons          []Addon  `json:"addons"`
	FeaturesYes     []string `json:"features_yes"`
	FeaturesNo      []string `json:"features_no"`
}

// Window is a raw availability window inside one calendar day. A nil
// Available means available; only an explicit false excludes the window.
type Window struct {
	Date      string `json:"date,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Label     string `json:"label,omitempty"`
	Available *bool  `json:"available,omitempty"`
}

type CalendarDay struct {
	Date  string   `json:"date"`
	Slots []Window `json:"slots"`
}

// Session is a concrete bookable window derived from raw calendar windows.
// Sessions are computed, never persisted on their own.
type Session struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}
