package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

// CheckoutSessionStore persists the wizard state as a JSON blob, one row per
// user. Saving replaces whatever was there, so a user can only ever have a
// single live checkout.
type CheckoutSessionStore struct {
	db *sql.DB
}

func NewCheckoutSessionStore(db *sql.DB) *CheckoutSessionStore {
	return &CheckoutSessionStore{db: db}
}

func (s *CheckoutSessionStore) Save(chatID int64, sess *model.CheckoutSession, now int64) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO checkout_sessions (chat_id, state_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		chatID, string(blob), now,
	)
	if err != nil {
		return fmt.Errorf("save checkout session for %d: %w", chatID, err)
	}
	return nil
}

// Get returns the stored session, or nil when the user has none. A row whose
// JSON no longer unmarshals is treated as absent and removed.
func (s *CheckoutSessionStore) Get(chatID int64) (*model.CheckoutSession, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state_json FROM checkout_sessions WHERE chat_id = ?`, chatID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout session for %d: %w", chatID, err)
	}

	var sess model.CheckoutSession
	if err := json.Unmarshal([]byte(blob), &sess); err != nil {
		_ = s.Delete(chatID)
		return nil, nil
	}
	return &sess, nil
}

func (s *CheckoutSessionStore) Delete(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM checkout_sessions WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("delete checkout session for %d: %w", chatID, err)
	}
	return nil
}
