package model

// Stage is the current step of the checkout wizard.
type Stage string

const (
	StagePlans  Stage = "plans"
	StageHours  Stage = "hours"
	StageAddons Stage = "addons"
	StageDates  Stage = "dates"
	StageSlots  Stage = "slots"
)

func (s Stage) Valid() bool {
	switch s {
	case StagePlans, StageHours, StageAddons, StageDates, StageSlots:
		return true
	}
	return false
}

// CheckoutSession is the persisted wizard state, one live session per user.
// It is stored as a JSON blob and upserted after every mutation.
type CheckoutSession struct {
	ProfileID      int64                `json:"profile_id"`
	ProfileName    string               `json:"profile_name"`
	ProductID      int64                `json:"product_id"`
	WorkerID       int64                `json:"worker_id"`
	Currency       string               `json:"currency"`
	Plans          []Plan               `json:"plans"`
	Calendar       []CalendarDay        `json:"calendar"`
	PlanIdx        int                  `json:"plan_idx"`
	Hours          int                  `json:"hours"`
	SelectedAddons []string             `json:"selected_addons"`
	DateSessions   map[string][]Session `json:"date_sessions"`
	SelectedDate   string               `json:"selected_date"`
	Stage          Stage                `json:"stage"`
}

// Plan returns the currently selected plan, or nil when the stored index no
// longer references one (e.g. upstream config changed under a resumed session).
func (s *CheckoutSession) Plan() *Plan {
	if s.PlanIdx < 0 || s.PlanIdx >= len(s.Plans) {
		return nil
	}
	return &s.Plans[s.PlanIdx]
}
