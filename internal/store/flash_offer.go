package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type FlashOfferStore struct {
	db *sql.DB
}

func NewFlashOfferStore(db *sql.DB) *FlashOfferStore {
	return &FlashOfferStore{db: db}
}

// Upsert grants a fresh offer, replacing any previous one for the user and
// clearing its used marker.
func (s *FlashOfferStore) Upsert(chatID int64, discountPct int, validUntil, now int64) error {
	_, err := s.db.Exec(
		`INSERT INTO flash_offers (chat_id, discount_pct, valid_until, created_at, used_at)
		 VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   discount_pct = excluded.discount_pct,
		   valid_until = excluded.valid_until,
		   created_at = excluded.created_at,
		   used_at = NULL`,
		chatID, discountPct, validUntil, now,
	)
	if err != nil {
		return fmt.Errorf("upsert flash offer for %d: %w", chatID, err)
	}
	return nil
}

// Get returns the user's offer only while it is live: unexpired, unused, and
// with a positive discount. Anything else reads as nil.
func (s *FlashOfferStore) Get(chatID, now int64) (*model.FlashOffer, error) {
	var o model.FlashOffer
	var usedAt sql.NullInt64
	err := s.db.QueryRow(
		`SELECT chat_id, discount_pct, valid_until, created_at, used_at
		 FROM flash_offers WHERE chat_id = ?`,
		chatID,
	).Scan(&o.ChatID, &o.DiscountPct, &o.ValidUntil, &o.CreatedAt, &usedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flash offer for %d: %w", chatID, err)
	}
	if usedAt.Valid {
		o.UsedAt = &usedAt.Int64
	}
	if o.UsedAt != nil || o.ValidUntil <= now || o.DiscountPct <= 0 {
		return nil, nil
	}
	return &o, nil
}

func (s *FlashOfferStore) MarkUsed(chatID, now int64) error {
	_, err := s.db.Exec(
		`UPDATE flash_offers SET used_at = ? WHERE chat_id = ? AND used_at IS NULL`,
		now, chatID,
	)
	if err != nil {
		return fmt.Errorf("mark flash offer used for %d: %w", chatID, err)
	}
	return nil
}
