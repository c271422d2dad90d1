package model

// FlashOffer is a time-boxed single-use discount granted after a purchase.
type FlashOffer struct {
	ChatID      int64  `json:"chat_id"`
	DiscountPct int    `json:"discount_pct"`
	ValidUntil  int64  `json:"valid_until"`
	CreatedAt   int64  `json:"created_at"`
	UsedAt      *int64 `json:"used_at,omitempty"`
}

// VIPPayment records a payment gateway transaction created for a VIP purchase.
type VIPPayment struct {
	ID            int64   `json:"id"`
	ChatID        int64   `json:"chat_id"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	RedirectURL   string  `json:"redirect_url"`
	CreatedAt     int64   `json:"created_at"`
}
