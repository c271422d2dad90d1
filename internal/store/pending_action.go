package store

import (
	"database/sql"
	"fmt"
)

// PendingActionStore remembers the one action a chat is in the middle of, so
// the next free-text message can be interpreted as its input.
type PendingActionStore struct {
	db *sql.DB
}

func NewPendingActionStore(db *sql.DB) *PendingActionStore {
	return &PendingActionStore{db: db}
}

func (s *PendingActionStore) Set(chatID int64, action, payload string, now int64) error {
	_, err := s.db.Exec(
		`INSERT INTO pending_actions (chat_id, action, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   action = excluded.action, payload = excluded.payload, updated_at = excluded.updated_at`,
		chatID, action, payload, now,
	)
	if err != nil {
		return fmt.Errorf("set pending action for %d: %w", chatID, err)
	}
	return nil
}

func (s *PendingActionStore) Get(chatID int64) (action, payload string, err error) {
	err = s.db.QueryRow(
		`SELECT action, payload FROM pending_actions WHERE chat_id = ?`, chatID,
	).Scan(&action, &payload)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("get pending action for %d: %w", chatID, err)
	}
	return action, payload, nil
}

func (s *PendingActionStore) Clear(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_actions WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("clear pending action for %d: %w", chatID, err)
	}
	return nil
}
