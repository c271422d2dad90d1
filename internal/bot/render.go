package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mirelabs/velora/internal/checkout"
	"github.com/mirelabs/velora/internal/model"
)

func funnelKeyboard() [][]model.Button {
	return [][]model.Button{
		{{Text: "Just looking around", Action: "reason:browsing"}},
		{{Text: "Prices seem high", Action: "reason:price"}},
		{{Text: "Haven't found my type", Action: "reason:nomatch"}},
		{{Text: "Times don't work for me", Action: "reason:schedule"}},
		{{Text: "Something else", Action: "reason:other"}},
		{{Text: "Show me the catalog", Action: "browse"}},
	}
}

func watchKeyboard(profileID int64) [][]model.Button {
	return [][]model.Button{
		{{Text: "Watch this calendar", Action: fmt.Sprintf("watch:%d", profileID)}},
	}
}

func backRow() []model.Button {
	return []model.Button{
		{Text: "Back", Action: "back"},
		{Text: "Cancel", Action: "discard"},
	}
}

// renderStage sends the message for whatever wizard stage the session is in.
func (b *Bot) renderStage(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	switch sess.Stage {
	case model.StagePlans:
		return b.renderPlans(ctx, chatID, sess)
	case model.StageHours:
		return b.renderHours(ctx, chatID, sess)
	case model.StageAddons:
		return b.renderAddons(ctx, chatID, sess)
	case model.StageDates:
		return b.renderDates(ctx, chatID, sess)
	case model.StageSlots:
		return b.renderSlots(ctx, chatID, sess)
	default:
		b.logger.Error("unknown wizard stage", "chat_id", chatID, "stage", sess.Stage)
		return b.checkout.Discard(chatID)
	}
}

func (b *Bot) renderPlans(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking %s. Pick a plan:\n", sess.ProfileName)
	buttons := make([][]model.Button, 0, len(sess.Plans)+1)
	for i, p := range sess.Plans {
		fmt.Fprintf(&sb, "\n<b>%s</b> — %.0f %s/hour", p.Name, p.PricePerHour, sess.Currency)
		for _, f := range p.FeaturesYes {
			sb.WriteString("\n  + " + f)
		}
		for _, f := range p.FeaturesNo {
			sb.WriteString("\n  − " + f)
		}
		buttons = append(buttons, []model.Button{{
			Text:   p.Name,
			Action: fmt.Sprintf("plan:%d", i),
		}})
	}
	buttons = append(buttons, []model.Button{{Text: "Cancel", Action: "discard"}})
	return b.api.SendMessage(ctx, chatID, sb.String(), buttons)
}

func (b *Bot) renderHours(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	plan := sess.Plan()
	if plan == nil {
		return b.renderPlans(ctx, chatID, sess)
	}
	options := plan.HoursOptions
	if len(options) == 0 {
		options = []int{1, 2, 3, 4}
	}
	var row []model.Button
	var buttons [][]model.Button
	for _, h := range options {
		row = append(row, model.Button{
			Text:   fmt.Sprintf("%d h", h),
			Action: fmt.Sprintf("hours:%d", h),
		})
		if len(row) == 4 {
			buttons = append(buttons, row)
			row = nil
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}
	buttons = append(buttons, backRow())
	text := fmt.Sprintf("%s, plan <b>%s</b>. How many hours?", sess.ProfileName, plan.Name)
	return b.api.SendMessage(ctx, chatID, text, buttons)
}

func (b *Bot) renderAddons(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	plan := sess.Plan()
	if plan == nil {
		return b.renderPlans(ctx, chatID, sess)
	}
	if len(plan.Addons) == 0 {
		// Nothing to offer, skip straight to dates.
		return b.handleAddonsDone(ctx, chatID)
	}

	selected := make(map[string]bool, len(sess.SelectedAddons))
	for _, id := range sess.SelectedAddons {
		selected[id] = true
	}
	buttons := make([][]model.Button, 0, len(plan.Addons)+2)
	for _, a := range plan.Addons {
		label := a.Label
		if selected[a.ID] {
			label = "✓ " + label
		}
		switch a.Type {
		case model.AddonPercent:
			label = fmt.Sprintf("%s (+%.0f%%)", label, a.Value)
		default:
			label = fmt.Sprintf("%s (+%.0f %s)", label, a.Value, sess.Currency)
		}
		buttons = append(buttons, []model.Button{{
			Text:   label,
			Action: "addon:" + a.ID,
		}})
	}
	buttons = append(buttons,
		[]model.Button{{Text: "Continue", Action: "addons_done"}},
		backRow())

	quote := checkout.Price(plan, sess.Hours, sess.SelectedAddons)
	text := fmt.Sprintf("Any extras? Current total for %d h: <b>%.2f %s</b>",
		sess.Hours, quote.Total, sess.Currency)
	return b.api.SendMessage(ctx, chatID, text, buttons)
}

func (b *Bot) renderDates(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	dates := make([]string, 0, len(sess.DateSessions))
	for d := range sess.DateSessions {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var row []model.Button
	var buttons [][]model.Button
	for _, d := range dates {
		row = append(row, model.Button{Text: shortDate(d), Action: "date:" + d})
		if len(row) == 3 {
			buttons = append(buttons, row)
			row = nil
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}
	buttons = append(buttons, backRow())
	return b.api.SendMessage(ctx, chatID, "Which day works for you?", buttons)
}

func (b *Bot) renderSlots(ctx context.Context, chatID int64, sess *model.CheckoutSession) error {
	sessions := sess.DateSessions[sess.SelectedDate]
	if len(sessions) == 0 {
		return b.renderDates(ctx, chatID, sess)
	}
	var row []model.Button
	var buttons [][]model.Button
	for _, s := range sessions {
		row = append(row, model.Button{
			Text:   fmt.Sprintf("%s - %s", s.Start, s.End),
			Action: fmt.Sprintf("slot:%s|%s", s.Start, s.End),
		})
		if len(row) == 2 {
			buttons = append(buttons, row)
			row = nil
		}
	}
	if len(row) > 0 {
		buttons = append(buttons, row)
	}
	buttons = append(buttons, backRow())
	text := fmt.Sprintf("Times on %s:", shortDate(sess.SelectedDate))
	return b.api.SendMessage(ctx, chatID, text, buttons)
}

// shortDate turns "2006-01-02" into "02.01". Anything unparseable passes
// through as-is.
func shortDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return date
	}
	return parts[2] + "." + parts[1]
}
