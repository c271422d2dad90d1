// Package checkout implements the multi-stage reservation wizard: plan,
// hours, addons, date, slot, then hold plus order creation. State is
// persisted after every mutation so a restart never loses a session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirelabs/velora/internal/availability"
	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/commerce"
	"github.com/mirelabs/velora/internal/model"
	"github.com/mirelabs/velora/internal/schedule"
)

var (
	// ErrNoSession means the user has no live wizard to act on.
	ErrNoSession = errors.New("no checkout session")
	// ErrNoAvailability means the chosen duration fits nowhere in the
	// calendar; the caller routes back to hours.
	ErrNoAvailability = errors.New("no availability for duration")
	// ErrSlotTaken means the hold was refused; the caller routes back to
	// dates.
	ErrSlotTaken = errors.New("slot no longer available")
	// ErrStale means the session references something that no longer exists
	// (removed plan, vanished date or slot); the caller re-renders the
	// nearest valid stage.
	ErrStale = errors.New("stale session reference")
)

const (
	minHours     = 1
	maxHours     = 12
	lookAheadDay = 14
)

// Scheduler is the slice of the scheduling client the wizard needs.
type Scheduler interface {
	ProductConfig(ctx context.Context, productID int64) (*schedule.ProductConfig, error)
	Slots(ctx context.Context, workerID int64, days int) ([]model.CalendarDay, error)
	Hold(ctx context.Context, workerID int64, date, start, end string, ttl time.Duration) (string, error)
}

// OrderCreator is the slice of the commerce client the wizard needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, or commerce.OrderRequest) (int64, string, error)
}

type SessionStore interface {
	Save(chatID int64, sess *model.CheckoutSession, now int64) error
	Get(chatID int64) (*model.CheckoutSession, error)
	Delete(chatID int64) error
}

type OrderStore interface {
	Create(o model.Order) error
}

// Confirmation is the result of a completed wizard: the created order and
// where to pay for it.
type Confirmation struct {
	OrderID     int64
	PaymentURL  string
	Amount      float64
	Currency    string
	ProfileName string
	Date        string
	Start       string
	End         string
}

type Manager struct {
	scheduler Scheduler
	commerce  OrderCreator
	sessions  SessionStore
	orders    OrderStore
	logger    *slog.Logger
	holdTTL   time.Duration

	now func() int64
}

func NewManager(scheduler Scheduler, oc OrderCreator, sessions SessionStore, orders OrderStore, logger *slog.Logger, holdTTL time.Duration) *Manager {
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	return &Manager{
		scheduler: scheduler,
		commerce:  oc,
		sessions:  sessions,
		orders:    orders,
		logger:    logger,
		holdTTL:   holdTTL,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// Start opens a fresh wizard for the profile, replacing any previous
// session.
func (m *Manager) Start(ctx context.Context, chatID int64, profile *catalog.Profile) (*model.CheckoutSession, error) {
	cfg, err := m.scheduler.ProductConfig(ctx, profile.ProductID)
	if err != nil {
		return nil, fmt.Errorf("product config: %w", err)
	}
	if len(cfg.Plans) == 0 {
		return nil, ErrNoAvailability
	}

	workerID := cfg.WorkerID
	if workerID == 0 {
		workerID = profile.WorkerID
	}
	calendar, err := m.scheduler.Slots(ctx, workerID, lookAheadDay)
	if err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = profile.Currency
	}
	sess := &model.CheckoutSession{
		ProfileID:   profile.ID,
		ProfileName: profile.Name,
		ProductID:   profile.ProductID,
		WorkerID:    workerID,
		Currency:    currency,
		Plans:       cfg.Plans,
		Calendar:    calendar,
		PlanIdx:     -1,
		Stage:       model.StagePlans,
	}
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resume loads the persisted session for rendering at its stored stage. A
// session whose plan list emptied out is discarded; one whose plan index
// went stale is reset to the plan stage.
func (m *Manager) Resume(chatID int64) (*model.CheckoutSession, error) {
	sess, err := m.sessions.Get(chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	if len(sess.Plans) == 0 {
		_ = m.sessions.Delete(chatID)
		return nil, ErrNoSession
	}
	if sess.Stage != model.StagePlans && sess.Plan() == nil {
		sess.Stage = model.StagePlans
		sess.PlanIdx = -1
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
	}
	if !sess.Stage.Valid() {
		sess.Stage = model.StagePlans
	}
	return sess, nil
}

func (m *Manager) load(chatID int64) (*model.CheckoutSession, error) {
	sess, err := m.sessions.Get(chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

// SelectPlan fixes the plan and advances to hours. Selecting a plan resets
// any hour and addon choices made under another plan.
func (m *Manager) SelectPlan(chatID int64, idx int) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(sess.Plans) {
		sess.Stage = model.StagePlans
		sess.PlanIdx = -1
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return sess, ErrStale
	}
	sess.PlanIdx = idx
	sess.Hours = 1
	sess.SelectedAddons = nil
	sess.DateSessions = nil
	sess.SelectedDate = ""
	sess.Stage = model.StageHours
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// ClampHours bounds a requested duration to the bookable range.
func ClampHours(h int) int {
	if h < minHours {
		return minHours
	}
	if h > maxHours {
		return maxHours
	}
	return h
}

// SelectHours fixes the duration and advances to addons. Changing hours
// clears addon picks since addon applicability can depend on length.
func (m *Manager) SelectHours(chatID int64, hours int) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	if sess.Plan() == nil {
		sess.Stage = model.StagePlans
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return sess, ErrStale
	}
	sess.Hours = ClampHours(hours)
	sess.SelectedAddons = nil
	sess.Stage = model.StageAddons
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// ToggleAddon flips one addon id in the selection. Toggling twice restores
// the original set.
func (m *Manager) ToggleAddon(chatID int64, addonID string) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	for i, id := range sess.SelectedAddons {
		if id == addonID {
			sess.SelectedAddons = append(sess.SelectedAddons[:i], sess.SelectedAddons[i+1:]...)
			if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
				return nil, err
			}
			return sess, nil
		}
	}
	sess.SelectedAddons = append(sess.SelectedAddons, addonID)
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// ConfirmAddons slices the raw calendar into per-date sessions for the
// chosen duration and advances to dates. No fitting session anywhere sends
// the user back to hours with ErrNoAvailability.
func (m *Manager) ConfirmAddons(chatID int64) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	plan := sess.Plan()
	if plan == nil || sess.Hours == 0 {
		sess.Stage = model.StagePlans
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return sess, ErrStale
	}

	step := availability.StepMinutes(plan.BaseStepMinutes)
	duration := sess.Hours * step
	sess.DateSessions = availability.BuildCalendarSessions(sess.Calendar, duration, step)

	if len(sess.DateSessions) == 0 {
		sess.Stage = model.StageHours
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return sess, ErrNoAvailability
	}

	sess.Stage = model.StageDates
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectDate fixes the day and advances to slot choice. A date with no
// computed sessions keeps the user on the date stage.
func (m *Manager) SelectDate(chatID int64, date string) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	if len(sess.DateSessions[date]) == 0 {
		sess.Stage = model.StageDates
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return sess, ErrStale
	}
	sess.SelectedDate = date
	sess.Stage = model.StageSlots
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectSlot finishes the wizard: hold the exact window, price the
// selection, create the order, persist it and clear the session. A refused
// hold returns the user to dates; an order failure after a successful hold
// keeps the session and relies on the hold's TTL to free the slot.
func (m *Manager) SelectSlot(ctx context.Context, chatID int64, start, end, recipient string) (*Confirmation, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	plan := sess.Plan()
	if plan == nil || sess.SelectedDate == "" {
		sess.Stage = model.StageDates
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return nil, ErrStale
	}

	var picked *model.Session
	for i, s := range sess.DateSessions[sess.SelectedDate] {
		if s.Start == start && s.End == end {
			picked = &sess.DateSessions[sess.SelectedDate][i]
			break
		}
	}
	if picked == nil {
		sess.Stage = model.StageSlots
		if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
			return nil, err
		}
		return nil, ErrStale
	}

	token, err := m.scheduler.Hold(ctx, sess.WorkerID, picked.Date, picked.Start, picked.End, m.holdTTL)
	if err != nil {
		m.logger.Warn("hold refused",
			"chat_id", chatID, "date", picked.Date, "start", picked.Start, "error", err)
		sess.Stage = model.StageDates
		if saveErr := m.sessions.Save(chatID, sess, m.now()); saveErr != nil {
			return nil, saveErr
		}
		return nil, ErrSlotTaken
	}

	quote := Price(plan, sess.Hours, sess.SelectedAddons)

	orderID, payURL, err := m.commerce.CreateOrder(ctx, commerce.OrderRequest{
		ChatID:      chatID,
		Recipient:   recipient,
		ProfileID:   sess.ProfileID,
		ProfileName: sess.ProfileName,
		PlanName:    plan.Name,
		Hours:       sess.Hours,
		Addons:      quote.AddonLabels,
		Date:        picked.Date,
		Start:       picked.Start,
		End:         picked.End,
		Amount:      quote.Total,
		Currency:    sess.Currency,
		ProductID:   sess.ProductID,
		HoldToken:   token,
	})
	if err != nil {
		// Hold release is TTL-only; the upstream has no release call.
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := m.orders.Create(model.Order{
		OrderID:     orderID,
		ChatID:      chatID,
		ProfileID:   sess.ProfileID,
		ProfileName: sess.ProfileName,
		Amount:      quote.Total,
		Currency:    sess.Currency,
		Status:      model.OrderPending,
		CreatedAt:   m.now(),
	}); err != nil {
		return nil, err
	}
	if err := m.sessions.Delete(chatID); err != nil {
		m.logger.Warn("clear session after order", "chat_id", chatID, "error", err)
	}

	return &Confirmation{
		OrderID:     orderID,
		PaymentURL:  payURL,
		Amount:      quote.Total,
		Currency:    sess.Currency,
		ProfileName: sess.ProfileName,
		Date:        picked.Date,
		Start:       picked.Start,
		End:         picked.End,
	}, nil
}

// Back steps the wizard one stage toward the start, keeping selections so
// the user can revise rather than restart.
func (m *Manager) Back(chatID int64) (*model.CheckoutSession, error) {
	sess, err := m.load(chatID)
	if err != nil {
		return nil, err
	}
	switch sess.Stage {
	case model.StageSlots:
		sess.Stage = model.StageDates
	case model.StageDates:
		sess.Stage = model.StageAddons
	case model.StageAddons:
		sess.Stage = model.StageHours
	default:
		sess.Stage = model.StagePlans
	}
	if err := m.sessions.Save(chatID, sess, m.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

// Discard drops the live session.
func (m *Manager) Discard(chatID int64) error {
	return m.sessions.Delete(chatID)
}
