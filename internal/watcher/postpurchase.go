package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mirelabs/velora/internal/campaign"
	"github.com/mirelabs/velora/internal/model"
)

// batchLimit bounds one reconciliation pass.
const batchLimit = 40

type OrderStore interface {
	ListUnsent(limit int) ([]model.Order, error)
	RecordStatus(orderID int64, status string, checkedAt int64) error
	MarkPostPurchaseSent(orderID int64) error
}

type StatusFetcher interface {
	OrderStatus(ctx context.Context, orderID int64) (string, error)
}

type OfferGranter interface {
	Upsert(chatID int64, discountPct int, validUntil, now int64) error
}

type CampaignTrigger interface {
	Trigger(ctx context.Context, trig campaign.Trigger) (bool, error)
}

// PostPurchase reconciles order payment status against the storefront and
// runs the thank-you flow exactly once per paid order. The sent flag is
// written only after the offer grant and campaign trigger both succeed, so
// any failure leaves the order eligible for the next tick.
type PostPurchase struct {
	orders   OrderStore
	status   StatusFetcher
	offers   OfferGranter
	runner   CampaignTrigger
	logger   *slog.Logger
	discount int
	window   time.Duration

	now func() int64
}

func NewPostPurchase(orders OrderStore, status StatusFetcher, offers OfferGranter, runner CampaignTrigger, logger *slog.Logger, discountPct int, offerWindow time.Duration) *PostPurchase {
	if offerWindow <= 0 {
		offerWindow = 24 * time.Hour
	}
	return &PostPurchase{
		orders:   orders,
		status:   status,
		offers:   offers,
		runner:   runner,
		logger:   logger,
		discount: discountPct,
		window:   offerWindow,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Tick runs one reconciliation pass. Per-order failures are logged and
// skipped; the pass itself never aborts early.
func (w *PostPurchase) Tick(ctx context.Context) {
	orders, err := w.orders.ListUnsent(batchLimit)
	if err != nil {
		w.logger.Error("list unsent orders", "error", err)
		return
	}

	for _, o := range orders {
		if err := w.reconcile(ctx, o); err != nil {
			w.logger.Warn("reconcile order", "order_id", o.OrderID, "error", err)
		}
	}
}

func (w *PostPurchase) reconcile(ctx context.Context, o model.Order) error {
	status, err := w.status.OrderStatus(ctx, o.OrderID)
	if err != nil {
		return fmt.Errorf("order status: %w", err)
	}

	now := w.now()
	if err := w.orders.RecordStatus(o.OrderID, status, now); err != nil {
		return err
	}
	if !model.PaidStatus(status) {
		return nil
	}

	if err := w.offers.Upsert(o.ChatID, w.discount, now+int64(w.window.Seconds()), now); err != nil {
		return fmt.Errorf("grant flash offer: %w", err)
	}

	if _, err := w.runner.Trigger(ctx, campaign.Trigger{
		ChatID:      o.ChatID,
		Campaign:    campaign.PostPurchase,
		Reason:      "order_paid",
		ProfileID:   o.ProfileID,
		PayloadHash: "order:" + strconv.FormatInt(o.OrderID, 10),
		Context: map[string]string{
			"profile_name": o.ProfileName,
			"amount":       strconv.FormatFloat(o.Amount, 'f', 2, 64),
			"currency":     o.Currency,
			"discount_pct": strconv.Itoa(w.discount),
		},
	}); err != nil {
		return fmt.Errorf("trigger post-purchase campaign: %w", err)
	}

	if err := w.orders.MarkPostPurchaseSent(o.OrderID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	w.logger.Info("post-purchase flow completed",
		"order_id", o.OrderID, "chat_id", o.ChatID, "status", status)
	return nil
}
