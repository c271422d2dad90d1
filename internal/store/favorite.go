package store

import (
	"database/sql"
	"fmt"
)

type FavoriteStore struct {
	db *sql.DB
}

func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// Toggle flips the favorite state and reports the resulting state.
func (s *FavoriteStore) Toggle(chatID, profileID, now int64) (bool, error) {
	has, err := s.Has(chatID, profileID)
	if err != nil {
		return false, err
	}
	if has {
		if _, err := s.db.Exec(
			`DELETE FROM favorites WHERE chat_id = ? AND profile_id = ?`,
			chatID, profileID,
		); err != nil {
			return false, fmt.Errorf("remove favorite: %w", err)
		}
		return false, nil
	}
	if _, err := s.db.Exec(
		`INSERT INTO favorites (chat_id, profile_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id, profile_id) DO NOTHING`,
		chatID, profileID, now,
	); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

func (s *FavoriteStore) Has(chatID, profileID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM favorites WHERE chat_id = ? AND profile_id = ?`,
		chatID, profileID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

func (s *FavoriteStore) List(chatID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT profile_id FROM favorites WHERE chat_id = ? ORDER BY created_at DESC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
