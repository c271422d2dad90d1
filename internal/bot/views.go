package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/mirelabs/velora/internal/availability"
	"github.com/mirelabs/velora/internal/campaign"
	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/model"
)

const slotPreviewDays = 14

func (b *Bot) showCatalog(ctx context.Context, chatID int64) error {
	profiles, err := b.catalog.Profiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return b.api.SendMessage(ctx, chatID, "The catalog is being updated, check back in a bit.", nil)
	}
	buttons := make([][]model.Button, 0, len(profiles))
	for _, p := range profiles {
		buttons = append(buttons, []model.Button{{
			Text:   fmt.Sprintf("%s — %.0f %s/h", p.Name, p.PricePerHour, p.Currency),
			Action: fmt.Sprintf("profile:%d", p.ID),
		}})
	}
	return b.api.SendMessage(ctx, chatID, "Available now:", buttons)
}

func (b *Bot) showFavorites(ctx context.Context, chatID int64) error {
	ids, err := b.favs.List(chatID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return b.api.SendMessage(ctx, chatID,
			"No favorites yet. Tap the heart on any profile to save it.", nil)
	}
	var buttons [][]model.Button
	for _, id := range ids {
		p, err := b.catalog.ByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		buttons = append(buttons, []model.Button{{
			Text:   p.Name,
			Action: fmt.Sprintf("profile:%d", p.ID),
		}})
	}
	if len(buttons) == 0 {
		return b.api.SendMessage(ctx, chatID, "Your saved profiles are no longer listed.", nil)
	}
	return b.api.SendMessage(ctx, chatID, "Your favorites:", buttons)
}

func (b *Bot) showProfile(ctx context.Context, chatID int64, p *catalog.Profile) error {
	fav, err := b.favs.Has(chatID, p.ID)
	if err != nil {
		return err
	}
	watching, err := b.subs.Has(chatID, p.ID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n%.0f %s/hour", html.EscapeString(p.Name), p.PricePerHour, p.Currency)
	if len(p.Tags) > 0 {
		sb.WriteString("\n" + html.EscapeString(strings.Join(p.Tags, " · ")))
	}
	if p.Description != "" {
		sb.WriteString("\n\n" + html.EscapeString(p.Description))
	}

	favLabel := "♡ Favorite"
	if fav {
		favLabel = "♥ Favorited"
	}
	watchLabel := "Watch calendar"
	if watching {
		watchLabel = "Stop watching"
	}
	buttons := [][]model.Button{
		{{Text: "Book now", Action: fmt.Sprintf("checkout:%d", p.ID)}},
		{{Text: "All available times", Action: fmt.Sprintf("times:%d", p.ID)}},
		{
			{Text: favLabel, Action: fmt.Sprintf("fav:%d", p.ID)},
			{Text: watchLabel, Action: fmt.Sprintf("watch:%d", p.ID)},
		},
	}

	if len(p.Images) > 0 {
		return b.api.SendPhoto(ctx, chatID, p.Images[0], sb.String(), buttons)
	}
	return b.api.SendMessage(ctx, chatID, sb.String(), buttons)
}

// recordInterest logs the view and, on the very first sighting of this
// profile by this visitor, kicks off the interest follow-up campaign.
func (b *Bot) recordInterest(ctx context.Context, chatID int64, p *catalog.Profile, source string) error {
	now := b.now()
	if err := b.interes.Record(chatID, p.ID, source, now); err != nil {
		return err
	}
	first, err := b.interes.RecordOnce(chatID, p.ID, now)
	if err != nil || !first {
		return err
	}
	_, err = b.runner.Trigger(ctx, campaign.Trigger{
		ChatID:    chatID,
		Campaign:  campaign.ProfileInterest,
		ProfileID: p.ID,
		Context: map[string]string{
			"profile_id":   strconv.FormatInt(p.ID, 10),
			"profile_name": p.Name,
		},
	})
	return err
}

func (b *Bot) currentSlotKeys(ctx context.Context, profileID int64) ([]string, error) {
	p, err := b.catalog.ByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.WorkerID == 0 {
		return nil, fmt.Errorf("profile %d has no schedule worker", profileID)
	}
	calendar, err := b.schedule.Slots(ctx, p.WorkerID, slotPreviewDays)
	if err != nil {
		return nil, err
	}
	return availability.SlotKeys(calendar, time.Unix(b.now(), 0).UTC()), nil
}

// handleTimes lists every upcoming bookable window for a profile and arms a
// delayed follow-up in case the visitor browses away without booking.
func (b *Bot) handleTimes(ctx context.Context, chatID int64, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil
	}
	p, err := b.catalog.ByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return b.api.SendMessage(ctx, chatID, "That profile is no longer listed.", nil)
	}

	keys, err := b.currentSlotKeys(ctx, id)
	if err != nil {
		b.logger.Warn("fetch slot list", "profile_id", id, "error", err)
		return b.api.SendMessage(ctx, chatID,
			"Couldn't load the calendar just now. Try again in a minute.", nil)
	}
	if len(keys) == 0 {
		return b.api.SendMessage(ctx, chatID,
			fmt.Sprintf("%s has no open times in the next two weeks. Want me to watch for you?", p.Name),
			watchKeyboard(p.ID))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Open times for %s:\n", p.Name)
	for _, k := range keys {
		sb.WriteString("• " + availability.HumanizeKey(k) + "\n")
	}
	buttons := [][]model.Button{
		{{Text: "Book a time", Action: fmt.Sprintf("checkout:%d", p.ID)}},
	}
	if err := b.api.SendMessage(ctx, chatID, strings.TrimRight(sb.String(), "\n"), buttons); err != nil {
		return err
	}

	b.scheduleTimesFollowup(chatID, p)
	return nil
}

// scheduleTimesFollowup fires the slot-list follow-up after a randomized
// delay, unless the visitor was active again well after viewing the list.
// The payload hash buckets repeats of the same list to one per hour.
func (b *Bot) scheduleTimesFollowup(chatID int64, p *catalog.Profile) {
	viewedAt := b.now()
	delay := b.followupDelay()
	go func() {
		time.Sleep(delay)
		user, err := b.users.Get(chatID)
		if err != nil {
			b.logger.Error("followup user lookup", "chat_id", chatID, "error", err)
			return
		}
		if user != nil && user.LastSeen > viewedAt+5 {
			return
		}
		_, err = b.runner.Trigger(context.Background(), campaign.Trigger{
			ChatID:      chatID,
			Campaign:    campaign.SlotsFollowup,
			ProfileID:   p.ID,
			PayloadHash: fmt.Sprintf("timesall:%d:%d", p.ID, viewedAt/3600),
			Context: map[string]string{
				"profile_id":   strconv.FormatInt(p.ID, 10),
				"profile_name": p.Name,
			},
		})
		if err != nil {
			b.logger.Error("slots followup", "chat_id", chatID, "error", err)
		}
	}()
}

// handleVIP quotes the VIP price, applies a live flash discount if the
// visitor holds one, and sends them to the payment gateway.
func (b *Bot) handleVIP(ctx context.Context, chatID int64) error {
	if !b.payments.Configured() {
		return b.api.SendMessage(ctx, chatID, "VIP access is not available right now.", nil)
	}

	now := b.now()
	price := b.vipCfg.Price
	offer, err := b.offers.Get(chatID, now)
	if err != nil {
		return err
	}
	var note string
	if offer != nil {
		price = price * float64(100-offer.DiscountPct) / 100
		note = fmt.Sprintf(" Your %d%% discount is applied.", offer.DiscountPct)
	}

	tx, err := b.payments.CreateTransaction(ctx, price, b.vipCfg.Currency,
		fmt.Sprintf("vip:%d", chatID))
	if err != nil {
		b.logger.Error("create vip transaction", "chat_id", chatID, "error", err)
		return b.api.SendMessage(ctx, chatID,
			"The payment gateway didn't respond. Please try again shortly.", nil)
	}

	_, err = b.vip.Create(model.VIPPayment{
		ChatID:        chatID,
		TransactionID: tx.ID,
		Amount:        price,
		Currency:      b.vipCfg.Currency,
		Status:        tx.Status,
		RedirectURL:   tx.RedirectURL,
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}
	if offer != nil {
		if err := b.offers.MarkUsed(chatID, now); err != nil {
			b.logger.Error("mark offer used", "chat_id", chatID, "error", err)
		}
	}
	// Operators can rotate the coupon code without a redeploy.
	coupon, err := b.settings.GetDefault("vip_coupon_code", b.vipCfg.CouponCode)
	if err != nil {
		coupon = b.vipCfg.CouponCode
	}
	if err := b.users.SetLastCoupon(chatID, coupon); err != nil {
		b.logger.Error("set coupon", "chat_id", chatID, "error", err)
	}

	text := fmt.Sprintf("VIP access: <b>%.2f %s</b>.%s", price, b.vipCfg.Currency, note)
	buttons := [][]model.Button{{{Text: "Pay for VIP", URL: tx.RedirectURL}}}
	return b.api.SendMessage(ctx, chatID, text, buttons)
}
