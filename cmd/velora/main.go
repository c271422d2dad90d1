package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/mirelabs/velora/internal/bot"
	"github.com/mirelabs/velora/internal/campaign"
	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/chat"
	"github.com/mirelabs/velora/internal/checkout"
	"github.com/mirelabs/velora/internal/commerce"
	"github.com/mirelabs/velora/internal/config"
	"github.com/mirelabs/velora/internal/database"
	"github.com/mirelabs/velora/internal/logging"
	"github.com/mirelabs/velora/internal/payment"
	"github.com/mirelabs/velora/internal/schedule"
	"github.com/mirelabs/velora/internal/store"
	"github.com/mirelabs/velora/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	interests := store.NewInterestStore(db)
	favorites := store.NewFavoriteStore(db)
	sessions := store.NewCheckoutSessionStore(db)
	orders := store.NewOrderStore(db)
	campaigns := store.NewCampaignStore(db)
	campaignLog := store.NewCampaignLogStore(db)
	slotSubs := store.NewSlotSubStore(db)
	channelState := store.NewChannelStateStore(db)
	offers := store.NewFlashOfferStore(db)
	vipPayments := store.NewVIPPaymentStore(db)
	pending := store.NewPendingActionStore(db)
	settings := store.NewSettingsStore(db)

	chatClient := chat.NewClient(cfg.Chat.APIBase, cfg.Chat.Token)
	scheduleClient := schedule.NewClient(cfg.Schedule.BaseURL, cfg.Schedule.APIKey, cfg.Schedule.Timeout)
	commerceClient := commerce.NewClient(cfg.Commerce.BaseURL, cfg.Commerce.ConsumerKey, cfg.Commerce.ConsumerSecret, cfg.Commerce.Timeout)
	paymentClient := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.MerchantID, cfg.Payment.Secret, cfg.Payment.ReturnURL, cfg.Payment.FailURL)
	profiles := catalog.NewService(cfg.Catalog.ManifestURL, cfg.Catalog.CacheTTL)

	runner := campaign.NewRunner(campaigns, campaignLog, chatClient, logger, time.Duration(cfg.Watch.CooldownHours)*time.Hour)
	if err := runner.SeedDefaults(); err != nil {
		log.Fatalf("seed campaigns: %v", err)
	}

	wizard := checkout.NewManager(scheduleClient, commerceClient, sessions, orders, logger, cfg.Schedule.HoldTTL)

	b := bot.New(chatClient, profiles, wizard, runner, scheduleClient, paymentClient, bot.Stores{
		Users:     users,
		Interests: interests,
		Favorites: favorites,
		SlotSubs:  slotSubs,
		Offers:    offers,
		VIP:       vipPayments,
		Pending:   pending,
		Settings:  settings,
	}, cfg.VIP, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postPurchase := watcher.NewPostPurchase(orders, commerceClient, offers, runner, logger, cfg.VIP.DiscountPct, cfg.VIP.OfferWindow)
	slots := watcher.NewSlots(slotSubs, channelState, profiles, scheduleClient, chatClient, logger, cfg.Chat.ChannelChatID)

	supervisor := watcher.NewSupervisor(logger)
	if err := supervisor.AddEvery("post-purchase", cfg.Watch.PostPurchaseInterval, func() {
		postPurchase.Tick(ctx)
	}); err != nil {
		log.Fatalf("schedule post-purchase watcher: %v", err)
	}
	if err := supervisor.AddEvery("slot-subscribers", cfg.Watch.SlotsInterval, func() {
		slots.TickSubscribers(ctx)
	}); err != nil {
		log.Fatalf("schedule slots watcher: %v", err)
	}
	if err := supervisor.AddEvery("slot-channel", cfg.Watch.ChannelInterval, func() {
		slots.TickChannel(ctx)
	}); err != nil {
		log.Fatalf("schedule channel watcher: %v", err)
	}
	supervisor.Start()

	logger.Info("velora running", "db", cfg.Database.Path)
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("bot stopped", "error", err)
	}

	logger.Info("shutting down")
	supervisor.Stop()
	runner.Wait()
}
