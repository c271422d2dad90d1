package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type InterestStore struct {
	db *sql.DB
}

func NewInterestStore(db *sql.DB) *InterestStore {
	return &InterestStore{db: db}
}

// Record appends an interest event. Every profile view is recorded, even
// repeats.
func (s *InterestStore) Record(chatID, profileID int64, source string, now int64) error {
	_, err := s.db.Exec(
		`INSERT INTO interests (chat_id, profile_id, source, created_at) VALUES (?, ?, ?, ?)`,
		chatID, profileID, source, now,
	)
	if err != nil {
		return fmt.Errorf("record interest: %w", err)
	}
	return nil
}

// RecordOnce marks the (chat, profile) pair as seen and reports whether this
// was the first sighting.
func (s *InterestStore) RecordOnce(chatID, profileID, now int64) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO interest_once (chat_id, profile_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id, profile_id) DO NOTHING`,
		chatID, profileID, now,
	)
	if err != nil {
		return false, fmt.Errorf("record interest once: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// LastForChat returns the most recent interest for a user, or nil when the
// user has never viewed a profile.
func (s *InterestStore) LastForChat(chatID int64) (*model.Interest, error) {
	row := s.db.QueryRow(
		`SELECT id, chat_id, profile_id, source, created_at FROM interests
		 WHERE chat_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		chatID,
	)
	var in model.Interest
	err := row.Scan(&in.ID, &in.ChatID, &in.ProfileID, &in.Source, &in.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last interest for %d: %w", chatID, err)
	}
	return &in, nil
}

func (s *InterestStore) ListForChat(chatID int64, limit int) ([]model.Interest, error) {
	rows, err := s.db.Query(
		`SELECT id, chat_id, profile_id, source, created_at FROM interests
		 WHERE chat_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list interests for %d: %w", chatID, err)
	}
	defer rows.Close()

	var out []model.Interest
	for rows.Next() {
		var in model.Interest
		if err := rows.Scan(&in.ID, &in.ChatID, &in.ProfileID, &in.Source, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
