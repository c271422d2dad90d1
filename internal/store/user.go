package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `chat_id, username, first_name, last_name, added_at, last_reason, last_coupon, last_seen`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(
		&u.ChatID, &u.Username, &u.FirstName, &u.LastName,
		&u.AddedAt, &u.LastReason, &u.LastCoupon, &u.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert inserts the user on first contact and refreshes the profile fields
// and last_seen afterwards. added_at is never overwritten.
func (s *UserStore) Upsert(u model.User, now int64) error {
	_, err := s.db.Exec(
		`INSERT INTO users (chat_id, username, first_name, last_name, added_at, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   last_seen = excluded.last_seen`,
		u.ChatID, u.Username, u.FirstName, u.LastName, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ChatID, err)
	}
	return nil
}

func (s *UserStore) Get(chatID int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE chat_id = ?`, chatID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", chatID, err)
	}
	return u, nil
}

func (s *UserStore) TouchSeen(chatID, now int64) error {
	_, err := s.db.Exec(`UPDATE users SET last_seen = ? WHERE chat_id = ?`, now, chatID)
	if err != nil {
		return fmt.Errorf("touch user %d: %w", chatID, err)
	}
	return nil
}

// SetLastReason remembers why the user last reached out, used to pick the
// matching follow-up campaign.
func (s *UserStore) SetLastReason(chatID int64, reason string) error {
	_, err := s.db.Exec(`UPDATE users SET last_reason = ? WHERE chat_id = ?`, reason, chatID)
	if err != nil {
		return fmt.Errorf("set last reason for %d: %w", chatID, err)
	}
	return nil
}

func (s *UserStore) SetLastCoupon(chatID int64, coupon string) error {
	_, err := s.db.Exec(`UPDATE users SET last_coupon = ? WHERE chat_id = ?`, coupon, chatID)
	if err != nil {
		return fmt.Errorf("set last coupon for %d: %w", chatID, err)
	}
	return nil
}

func (s *UserStore) ListChatIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT chat_id FROM users ORDER BY added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chat ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
