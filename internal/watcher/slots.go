package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mirelabs/velora/internal/availability"
	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/model"
)

const (
	slotLookAheadDays  = 14
	maxSubscriberLines = 3
	maxChannelLines    = 5
)

type SubscriptionStore interface {
	ListAll() ([]model.SlotSubscription, error)
	SetKnown(chatID, profileID int64, known []string, notifiedAt int64) error
}

type ChannelStore interface {
	Get(profileID int64) (*model.ChannelState, error)
	Save(profileID int64, known []string, postedAt int64) error
}

type ProfileSource interface {
	Profiles(ctx context.Context) ([]catalog.Profile, error)
	ByID(ctx context.Context, id int64) (*catalog.Profile, error)
}

type SlotsFetcher interface {
	Slots(ctx context.Context, workerID int64, days int) ([]model.CalendarDay, error)
}

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error
}

// Slots watches availability per profile and announces newly opened windows
// to subscribers and, optionally, a broadcast channel. Disappearing windows
// are absorbed silently; the known set is overwritten on every pass.
type Slots struct {
	subs          SubscriptionStore
	channel       ChannelStore
	profiles      ProfileSource
	schedule      SlotsFetcher
	sender        Sender
	logger        *slog.Logger
	channelChatID int64

	now func() int64
}

func NewSlots(subs SubscriptionStore, channel ChannelStore, profiles ProfileSource, schedule SlotsFetcher, sender Sender, logger *slog.Logger, channelChatID int64) *Slots {
	return &Slots{
		subs:          subs,
		channel:       channel,
		profiles:      profiles,
		schedule:      schedule,
		sender:        sender,
		logger:        logger,
		channelChatID: channelChatID,
		now:           func() int64 { return time.Now().Unix() },
	}
}

func (w *Slots) currentKeys(ctx context.Context, p *catalog.Profile) ([]string, error) {
	if p.WorkerID == 0 {
		return nil, fmt.Errorf("profile %d has no worker", p.ID)
	}
	calendar, err := w.schedule.Slots(ctx, p.WorkerID, slotLookAheadDays)
	if err != nil {
		return nil, err
	}
	return availability.SlotKeys(calendar, time.Unix(w.now(), 0).UTC()), nil
}

// TickSubscribers runs one pass over every subscription.
func (w *Slots) TickSubscribers(ctx context.Context) {
	subs, err := w.subs.ListAll()
	if err != nil {
		w.logger.Error("list slot subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	// One fetch per profile regardless of subscriber count.
	keysByProfile := make(map[int64][]string)
	for _, sub := range subs {
		if _, done := keysByProfile[sub.ProfileID]; done {
			continue
		}
		p, err := w.profiles.ByID(ctx, sub.ProfileID)
		if err != nil || p == nil {
			w.logger.Debug("subscription profile unresolved", "profile_id", sub.ProfileID, "error", err)
			continue
		}
		keys, err := w.currentKeys(ctx, p)
		if err != nil {
			w.logger.Warn("fetch slots", "profile_id", sub.ProfileID, "error", err)
			continue
		}
		keysByProfile[sub.ProfileID] = keys
	}

	for _, sub := range subs {
		current, ok := keysByProfile[sub.ProfileID]
		if !ok {
			continue
		}
		fresh := availability.Diff(current, sub.KnownSlots)
		notifiedAt := int64(0)
		if len(fresh) > 0 {
			p, _ := w.profiles.ByID(ctx, sub.ProfileID)
			name := ""
			if p != nil {
				name = p.Name
			}
			if err := w.sender.SendMessage(ctx, sub.ChatID,
				w.formatNew(name, fresh, maxSubscriberLines),
				bookButtons(sub.ProfileID)); err != nil {
				w.logger.Warn("notify subscriber", "chat_id", sub.ChatID, "error", err)
			} else {
				notifiedAt = w.now()
			}
		}
		if err := w.subs.SetKnown(sub.ChatID, sub.ProfileID, current, notifiedAt); err != nil {
			w.logger.Error("store known slots", "chat_id", sub.ChatID, "profile_id", sub.ProfileID, "error", err)
		}
	}
}

// TickChannel runs one broadcast pass over the whole catalog. A profile seen
// for the first time only records its baseline.
func (w *Slots) TickChannel(ctx context.Context) {
	if w.channelChatID == 0 {
		return
	}
	profiles, err := w.profiles.Profiles(ctx)
	if err != nil {
		w.logger.Error("load catalog for channel", "error", err)
		return
	}

	for i := range profiles {
		p := &profiles[i]
		current, err := w.currentKeys(ctx, p)
		if err != nil {
			w.logger.Debug("fetch slots for channel", "profile_id", p.ID, "error", err)
			continue
		}

		state, err := w.channel.Get(p.ID)
		if err != nil {
			w.logger.Error("load channel state", "profile_id", p.ID, "error", err)
			continue
		}
		if state == nil {
			if err := w.channel.Save(p.ID, current, 0); err != nil {
				w.logger.Error("baseline channel state", "profile_id", p.ID, "error", err)
			}
			continue
		}

		fresh := availability.Diff(current, state.KnownSlots)
		postedAt := int64(0)
		if len(fresh) > 0 {
			if err := w.sender.SendMessage(ctx, w.channelChatID,
				w.formatNew(p.Name, fresh, maxChannelLines),
				bookButtons(p.ID)); err != nil {
				w.logger.Warn("post to channel", "profile_id", p.ID, "error", err)
			} else {
				postedAt = w.now()
			}
		}
		if err := w.channel.Save(p.ID, current, postedAt); err != nil {
			w.logger.Error("store channel state", "profile_id", p.ID, "error", err)
		}
	}
}

func (w *Slots) formatNew(name string, fresh []string, maxLines int) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "New times for %s:\n", name)
	} else {
		b.WriteString("New times available:\n")
	}
	shown := fresh
	if len(shown) > maxLines {
		shown = shown[:maxLines]
	}
	for _, key := range shown {
		b.WriteString("• " + availability.HumanizeKey(key) + "\n")
	}
	if extra := len(fresh) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "...and %d more", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func bookButtons(profileID int64) [][]model.Button {
	return [][]model.Button{{
		{Text: "Pick a time", Action: "checkout:" + strconv.FormatInt(profileID, 10)},
	}}
}
