package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mirelabs/velora/internal/campaign"
	"github.com/mirelabs/velora/internal/chat"
	"github.com/mirelabs/velora/internal/checkout"
	"github.com/mirelabs/velora/internal/model"
)

func (b *Bot) handleMessage(ctx context.Context, chatID int64, msg *chat.Message) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
		return b.handleStart(ctx, chatID, msg.From, payload)
	case text == "/profiles" || text == "/browse":
		return b.showCatalog(ctx, chatID)
	case text == "/favorites":
		return b.showFavorites(ctx, chatID)
	case text == "/vip":
		return b.handleVIP(ctx, chatID)
	case text == "/help":
		return b.api.SendMessage(ctx, chatID, helpText, nil)
	default:
		return b.handleFreeText(ctx, chatID, text)
	}
}

const helpText = "I can show available companions, watch their calendars for you and book a time.\n" +
	"/profiles — browse the catalog\n" +
	"/favorites — your saved profiles\n" +
	"/vip — VIP access"

// handleStart greets a new visitor or, with a deeplink payload, jumps
// straight to the linked profile and records the interest.
func (b *Bot) handleStart(ctx context.Context, chatID int64, from *chat.Actor, payload string) error {
	if id, ok := parseDeeplink(payload); ok {
		profile, err := b.catalog.ByID(ctx, id)
		if err != nil {
			return err
		}
		if profile != nil {
			if err := b.recordInterest(ctx, chatID, profile, "deeplink"); err != nil {
				b.logger.Error("record interest", "chat_id", chatID, "error", err)
			}
			return b.showProfile(ctx, chatID, profile)
		}
	}

	name := ""
	if from != nil {
		name = from.FirstName
	}
	greeting := "Hi"
	if name != "" {
		greeting = "Hi, " + name
	}
	return b.api.SendMessage(ctx, chatID,
		greeting+"! I help you find and book a companion. What brings you here today?",
		funnelKeyboard())
}

func parseDeeplink(payload string) (int64, bool) {
	if !strings.HasPrefix(payload, "p_") {
		return 0, false
	}
	id, err := strconv.ParseInt(payload[2:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (b *Bot) handleFreeText(ctx context.Context, chatID int64, text string) error {
	action, payload, err := b.pending.Get(chatID)
	if err != nil {
		return err
	}
	if action == "looking_for" {
		if err := b.pending.Clear(chatID); err != nil {
			return err
		}
		b.logger.Info("visitor preference", "chat_id", chatID, "text", text, "context", payload)
		return b.api.SendMessage(ctx, chatID,
			"Noted! Here is what we have right now.", nil)
	}
	return b.api.SendMessage(ctx, chatID,
		"I didn't quite get that. Try one of these:", funnelKeyboard())
}

// handleCallback routes a button tap. The callback is always answered so the
// client spinner stops, even when the action fails afterwards.
func (b *Bot) handleCallback(ctx context.Context, chatID int64, cb *chat.Callback) error {
	if err := b.api.AnswerCallback(ctx, cb.ID, ""); err != nil {
		b.logger.Debug("answer callback", "error", err)
	}

	verb, arg := splitAction(cb.Data)
	switch verb {
	case "reason":
		return b.handleReason(ctx, chatID, arg)
	case "browse":
		return b.showCatalog(ctx, chatID)
	case "profile":
		return b.handleProfileView(ctx, chatID, arg)
	case "fav":
		return b.handleFavorite(ctx, chatID, arg)
	case "watch":
		return b.handleWatch(ctx, chatID, arg)
	case "times":
		return b.handleTimes(ctx, chatID, arg)
	case "vip":
		return b.handleVIP(ctx, chatID)
	case "checkout":
		return b.handleCheckoutStart(ctx, chatID, arg)
	case "plan":
		return b.handlePlan(ctx, chatID, arg)
	case "hours":
		return b.handleHours(ctx, chatID, arg)
	case "addon":
		return b.handleAddon(ctx, chatID, arg)
	case "addons_done":
		return b.handleAddonsDone(ctx, chatID)
	case "date":
		return b.handleDate(ctx, chatID, arg)
	case "slot":
		return b.handleSlot(ctx, chatID, arg, cb.From.FirstName)
	case "back":
		return b.handleBack(ctx, chatID)
	case "discard":
		return b.handleDiscard(ctx, chatID)
	case "resume":
		return b.handleResume(ctx, chatID)
	default:
		b.logger.Debug("unknown callback", "data", cb.Data)
		return nil
	}
}

func splitAction(data string) (verb, arg string) {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

// funnel answers map one-to-one onto seeded campaigns.
var reasonCampaigns = map[string]string{
	"price":    campaign.Price,
	"browsing": campaign.JustBrowsing,
	"nomatch":  campaign.NoMatch,
	"schedule": campaign.Schedule,
	"other":    campaign.Other,
}

func (b *Bot) handleReason(ctx context.Context, chatID int64, reason string) error {
	name, ok := reasonCampaigns[reason]
	if !ok {
		return nil
	}
	if err := b.users.SetLastReason(chatID, reason); err != nil {
		return err
	}

	user, err := b.users.Get(chatID)
	if err != nil {
		return err
	}
	firstName := ""
	if user != nil {
		firstName = user.FirstName
	}
	if reason == "nomatch" {
		if err := b.pending.Set(chatID, "looking_for", "", b.now()); err != nil {
			return err
		}
	}

	_, err = b.runner.Trigger(ctx, campaign.Trigger{
		ChatID:   chatID,
		Campaign: name,
		Reason:   reason,
		Context:  map[string]string{"name": firstName},
	})
	return err
}

func (b *Bot) handleProfileView(ctx context.Context, chatID int64, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	profile, err := b.catalog.ByID(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return b.api.SendMessage(ctx, chatID, "That profile is no longer listed.", nil)
	}
	if err := b.recordInterest(ctx, chatID, profile, "browse"); err != nil {
		b.logger.Error("record interest", "chat_id", chatID, "error", err)
	}
	return b.showProfile(ctx, chatID, profile)
}

func (b *Bot) handleFavorite(ctx context.Context, chatID int64, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	on, err := b.favs.Toggle(chatID, id, b.now())
	if err != nil {
		return err
	}
	if on {
		return b.api.SendMessage(ctx, chatID, "Added to your favorites.", nil)
	}
	return b.api.SendMessage(ctx, chatID, "Removed from your favorites.", nil)
}

// handleWatch toggles a slot subscription. Subscribing snapshots the current
// calendar as the baseline so only genuinely new windows notify.
func (b *Bot) handleWatch(ctx context.Context, chatID int64, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	has, err := b.subs.Has(chatID, id)
	if err != nil {
		return err
	}
	if has {
		if err := b.subs.Unsubscribe(chatID, id); err != nil {
			return err
		}
		return b.api.SendMessage(ctx, chatID, "Okay, I'll stop watching that calendar for you.", nil)
	}

	baseline, err := b.currentSlotKeys(ctx, id)
	if err != nil {
		b.logger.Warn("baseline slots", "profile_id", id, "error", err)
	}
	if err := b.subs.Subscribe(chatID, id, baseline, b.now()); err != nil {
		return err
	}
	return b.api.SendMessage(ctx, chatID,
		"Done! I'll message you the moment a new time opens up.", nil)
}

func (b *Bot) handleCheckoutStart(ctx context.Context, chatID int64, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	profile, err := b.catalog.ByID(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return b.api.SendMessage(ctx, chatID, "That profile is no longer listed.", nil)
	}

	sess, err := b.checkout.Start(ctx, chatID, profile)
	if errors.Is(err, checkout.ErrNoAvailability) {
		return b.api.SendMessage(ctx, chatID,
			"This profile has no bookable plans right now. Want me to watch the calendar for you?",
			watchKeyboard(profile.ID))
	}
	if err != nil {
		return err
	}
	return b.renderStage(ctx, chatID, sess)
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64, arg string) error {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return nil
	}
	sess, err := b.checkout.SelectPlan(chatID, idx)
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleHours(ctx context.Context, chatID int64, arg string) error {
	h, err := strconv.Atoi(arg)
	if err != nil {
		return nil
	}
	sess, err := b.checkout.SelectHours(chatID, h)
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleAddon(ctx context.Context, chatID int64, arg string) error {
	sess, err := b.checkout.ToggleAddon(chatID, arg)
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleAddonsDone(ctx context.Context, chatID int64) error {
	sess, err := b.checkout.ConfirmAddons(chatID)
	if errors.Is(err, checkout.ErrNoAvailability) {
		if err := b.api.SendMessage(ctx, chatID,
			"No dates can fit that length right now. Try fewer hours?", nil); err != nil {
			return err
		}
		return b.renderStage(ctx, chatID, sess)
	}
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleDate(ctx context.Context, chatID int64, arg string) error {
	sess, err := b.checkout.SelectDate(chatID, arg)
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleSlot(ctx context.Context, chatID int64, arg, recipient string) error {
	start, end, ok := strings.Cut(arg, "|")
	if !ok {
		return nil
	}
	conf, err := b.checkout.SelectSlot(ctx, chatID, start, end, recipient)
	if errors.Is(err, checkout.ErrSlotTaken) {
		if err := b.api.SendMessage(ctx, chatID,
			"Sorry, someone just took that time. Here are the remaining options.", nil); err != nil {
			return err
		}
		return b.renderCurrentStage(ctx, chatID)
	}
	if errors.Is(err, checkout.ErrStale) {
		return b.renderCurrentStage(ctx, chatID)
	}
	if err != nil {
		if errors.Is(err, checkout.ErrNoSession) {
			return b.api.SendMessage(ctx, chatID, "That booking session has expired. Start again from the profile.", nil)
		}
		b.logger.Warn("finalize booking", "chat_id", chatID, "error", err)
		return b.api.SendMessage(ctx, chatID,
			"Couldn't create the order just now. Your slot is briefly on hold, please try again shortly.", nil)
	}

	text := fmt.Sprintf("Booked! %s on %s, %s - %s.\nTotal: %.2f %s",
		conf.ProfileName, conf.Date, conf.Start, conf.End, conf.Amount, conf.Currency)
	var buttons [][]model.Button
	if conf.PaymentURL != "" {
		buttons = [][]model.Button{{{Text: "Pay now", URL: conf.PaymentURL}}}
	}
	return b.api.SendMessage(ctx, chatID, text, buttons)
}

func (b *Bot) handleBack(ctx context.Context, chatID int64) error {
	sess, err := b.checkout.Back(chatID)
	return b.afterWizardStep(ctx, chatID, sess, err)
}

func (b *Bot) handleDiscard(ctx context.Context, chatID int64) error {
	if err := b.checkout.Discard(chatID); err != nil {
		return err
	}
	return b.api.SendMessage(ctx, chatID, "Booking canceled. Come back anytime.", nil)
}

func (b *Bot) handleResume(ctx context.Context, chatID int64) error {
	return b.renderCurrentStage(ctx, chatID)
}

// afterWizardStep renders whatever stage the manager landed on. Stale
// references are not user errors: the nearest valid stage is simply shown
// again.
func (b *Bot) afterWizardStep(ctx context.Context, chatID int64, sess *model.CheckoutSession, err error) error {
	if errors.Is(err, checkout.ErrNoSession) {
		return b.api.SendMessage(ctx, chatID,
			"That booking session has expired. Start again from the profile.", nil)
	}
	if err != nil && !errors.Is(err, checkout.ErrStale) {
		return err
	}
	if sess == nil {
		return b.renderCurrentStage(ctx, chatID)
	}
	return b.renderStage(ctx, chatID, sess)
}

func (b *Bot) renderCurrentStage(ctx context.Context, chatID int64) error {
	sess, err := b.checkout.Resume(chatID)
	if errors.Is(err, checkout.ErrNoSession) {
		return b.api.SendMessage(ctx, chatID,
			"No active booking. Pick a profile to start one.", nil)
	}
	if err != nil {
		return err
	}
	return b.renderStage(ctx, chatID, sess)
}
