// Package bot is the conversation layer: it polls the chat platform,
// dispatches commands and button taps, and renders wizard stages and
// catalog views as messages.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mirelabs/velora/internal/campaign"
	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/chat"
	"github.com/mirelabs/velora/internal/checkout"
	"github.com/mirelabs/velora/internal/config"
	"github.com/mirelabs/velora/internal/model"
	"github.com/mirelabs/velora/internal/payment"
	"github.com/mirelabs/velora/internal/store"
)

// ChatAPI is the slice of the chat client the bot uses.
type ChatAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, buttons [][]model.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Updates(ctx context.Context, offset int64) ([]chat.Update, error)
}

// Availability is the slice of the scheduling client used for slot previews
// and subscription baselines.
type Availability interface {
	Slots(ctx context.Context, workerID int64, days int) ([]model.CalendarDay, error)
}

type Bot struct {
	api      ChatAPI
	catalog  *catalog.Service
	checkout *checkout.Manager
	runner   *campaign.Runner
	schedule Availability
	payments *payment.Client
	logger   *slog.Logger

	users    *store.UserStore
	interes  *store.InterestStore
	favs     *store.FavoriteStore
	subs     *store.SlotSubStore
	offers   *store.FlashOfferStore
	vip      *store.VIPPaymentStore
	pending  *store.PendingActionStore
	settings *store.SettingsStore

	vipCfg config.VIPConfig

	now func() int64
	// Follow-up delay source, overridable in tests.
	followupDelay func() time.Duration
}

type Stores struct {
	Users     *store.UserStore
	Interests *store.InterestStore
	Favorites *store.FavoriteStore
	SlotSubs  *store.SlotSubStore
	Offers    *store.FlashOfferStore
	VIP       *store.VIPPaymentStore
	Pending   *store.PendingActionStore
	Settings  *store.SettingsStore
}

func New(api ChatAPI, cat *catalog.Service, co *checkout.Manager, runner *campaign.Runner, schedule Availability, payments *payment.Client, stores Stores, vipCfg config.VIPConfig, logger *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		catalog:  cat,
		checkout: co,
		runner:   runner,
		schedule: schedule,
		payments: payments,
		logger:   logger,
		users:    stores.Users,
		interes:  stores.Interests,
		favs:     stores.Favorites,
		subs:     stores.SlotSubs,
		offers:   stores.Offers,
		vip:      stores.VIP,
		pending:  stores.Pending,
		settings: stores.Settings,
		vipCfg:   vipCfg,
		now:      func() int64 { return time.Now().Unix() },
		followupDelay: func() time.Duration {
			return 15*time.Minute + time.Duration(rand.Int63n(int64(15*time.Minute)))
		},
	}
}

// Run long-polls for updates until the context is canceled. Transient poll
// failures back off briefly rather than crashing the loop.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := b.api.Updates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("poll updates", "error", err)
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for i := range updates {
			u := &updates[i]
			offset = u.UpdateID + 1
			b.dispatch(ctx, u)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, u *chat.Update) {
	chatID := u.ChatID()
	if chatID == 0 {
		return
	}
	b.touchUser(u)

	var err error
	switch {
	case u.Message != nil:
		err = b.handleMessage(ctx, chatID, u.Message)
	case u.Callback != nil:
		err = b.handleCallback(ctx, chatID, u.Callback)
	}
	if err != nil {
		b.logger.Warn("handle update", "chat_id", chatID, "error", err)
		if !errors.Is(err, context.Canceled) {
			b.apologize(ctx, chatID)
		}
	}
}

func (b *Bot) touchUser(u *chat.Update) {
	from := u.From()
	if from == nil {
		return
	}
	err := b.users.Upsert(model.User{
		ChatID:    u.ChatID(),
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}, b.now())
	if err != nil {
		b.logger.Error("upsert user", "chat_id", u.ChatID(), "error", err)
	}
}

func (b *Bot) apologize(ctx context.Context, chatID int64) {
	_ = b.api.SendMessage(ctx, chatID,
		"Something went wrong on our side. Please try again shortly.", nil)
}
