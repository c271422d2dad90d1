package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

// ChannelStateStore tracks the broadcast channel's slot baseline per profile.
type ChannelStateStore struct {
	db *sql.DB
}

func NewChannelStateStore(db *sql.DB) *ChannelStateStore {
	return &ChannelStateStore{db: db}
}

// Get returns the stored state, or nil when the profile has never been seen.
// A nil state means the next pass records a baseline without posting.
func (s *ChannelStateStore) Get(profileID int64) (*model.ChannelState, error) {
	var st model.ChannelState
	var blob string
	err := s.db.QueryRow(
		`SELECT profile_id, known_slots, last_posted_at FROM slot_channel_state WHERE profile_id = ?`,
		profileID,
	).Scan(&st.ProfileID, &blob, &st.LastPostedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel state %d: %w", profileID, err)
	}
	st.KnownSlots = decodeSlots(blob)
	return &st, nil
}

func (s *ChannelStateStore) Save(profileID int64, known []string, postedAt int64) error {
	blob, err := encodeSlots(known)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO slot_channel_state (profile_id, known_slots, last_posted_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
		   known_slots = excluded.known_slots,
		   last_posted_at = CASE WHEN excluded.last_posted_at > 0 THEN excluded.last_posted_at ELSE slot_channel_state.last_posted_at END`,
		profileID, blob, postedAt,
	)
	if err != nil {
		return fmt.Errorf("save channel state %d: %w", profileID, err)
	}
	return nil
}
