package model

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
)

// PaidStatus reports whether an upstream order status counts as paid.
func PaidStatus(status string) bool {
	return status == OrderProcessing || status == OrderCompleted
}

// Order is a commerce order created at slot confirmation. Status and the
// PostPurchaseSent flag are updated only by the post-purchase watcher; once
// the flag is set the row is terminal.
type Order struct {
	OrderID          int64   `json:"order_id"`
	ChatID           int64   `json:"chat_id"`
	ProfileID        int64   `json:"profile_id"`
	ProfileName      string  `json:"profile_name"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	LastCheckedAt    int64   `json:"last_checked_at"`
	PostPurchaseSent bool    `json:"post_purchase_sent"`
	CreatedAt        int64   `json:"created_at"`
	PaidAt           int64   `json:"paid_at"`
}
