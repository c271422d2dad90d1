package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type SlotSubStore struct {
	db *sql.DB
}

func NewSlotSubStore(db *sql.DB) *SlotSubStore {
	return &SlotSubStore{db: db}
}

func encodeSlots(slots []string) (string, error) {
	if slots == nil {
		slots = []string{}
	}
	blob, err := json.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("encode slots: %w", err)
	}
	return string(blob), nil
}

func decodeSlots(blob string) []string {
	var slots []string
	if blob == "" || json.Unmarshal([]byte(blob), &slots) != nil {
		return nil
	}
	return slots
}

// Subscribe adds a subscription with the given baseline. Resubscribing keeps
// the existing baseline so the user is not re-notified about known slots.
func (s *SlotSubStore) Subscribe(chatID, profileID int64, known []string, now int64) error {
	blob, err := encodeSlots(known)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO slot_subscriptions (chat_id, profile_id, known_slots, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id, profile_id) DO NOTHING`,
		chatID, profileID, blob, now,
	)
	if err != nil {
		return fmt.Errorf("subscribe %d/%d: %w", chatID, profileID, err)
	}
	return nil
}

func (s *SlotSubStore) Unsubscribe(chatID, profileID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM slot_subscriptions WHERE chat_id = ? AND profile_id = ?`,
		chatID, profileID,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe %d/%d: %w", chatID, profileID, err)
	}
	return nil
}

func (s *SlotSubStore) Has(chatID, profileID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM slot_subscriptions WHERE chat_id = ? AND profile_id = ?`,
		chatID, profileID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return true, nil
}

func (s *SlotSubStore) ListAll() ([]model.SlotSubscription, error) {
	rows, err := s.db.Query(
		`SELECT chat_id, profile_id, known_slots, created_at, last_notified_at
		 FROM slot_subscriptions ORDER BY profile_id ASC, chat_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.SlotSubscription
	for rows.Next() {
		var sub model.SlotSubscription
		var blob string
		if err := rows.Scan(&sub.ChatID, &sub.ProfileID, &blob, &sub.CreatedAt, &sub.LastNotifiedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.KnownSlots = decodeSlots(blob)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SlotSubStore) ListForChat(chatID int64) ([]model.SlotSubscription, error) {
	rows, err := s.db.Query(
		`SELECT chat_id, profile_id, known_slots, created_at, last_notified_at
		 FROM slot_subscriptions WHERE chat_id = ? ORDER BY created_at DESC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %d: %w", chatID, err)
	}
	defer rows.Close()

	var out []model.SlotSubscription
	for rows.Next() {
		var sub model.SlotSubscription
		var blob string
		if err := rows.Scan(&sub.ChatID, &sub.ProfileID, &blob, &sub.CreatedAt, &sub.LastNotifiedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.KnownSlots = decodeSlots(blob)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SetKnown overwrites the baseline with the current slot set. Called on every
// watcher pass regardless of whether anything new appeared.
func (s *SlotSubStore) SetKnown(chatID, profileID int64, known []string, notifiedAt int64) error {
	blob, err := encodeSlots(known)
	if err != nil {
		return err
	}
	if notifiedAt > 0 {
		_, err = s.db.Exec(
			`UPDATE slot_subscriptions SET known_slots = ?, last_notified_at = ?
			 WHERE chat_id = ? AND profile_id = ?`,
			blob, notifiedAt, chatID, profileID,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE slot_subscriptions SET known_slots = ? WHERE chat_id = ? AND profile_id = ?`,
			blob, chatID, profileID,
		)
	}
	if err != nil {
		return fmt.Errorf("set known slots %d/%d: %w", chatID, profileID, err)
	}
	return nil
}
