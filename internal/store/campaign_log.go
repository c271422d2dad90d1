package store

import (
	"database/sql"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

// CampaignLogStore is the append-only send ledger. Throttling reads only
// step-zero entries: a logged first step within the cooldown window means the
// whole campaign run counts as recent.
type CampaignLogStore struct {
	db *sql.DB
}

func NewCampaignLogStore(db *sql.DB) *CampaignLogStore {
	return &CampaignLogStore{db: db}
}

func (s *CampaignLogStore) Append(e model.CampaignLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO campaign_log (chat_id, campaign, step_idx, reason, profile_id, payload_hash, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ChatID, e.Campaign, e.StepIdx, e.Reason, e.ProfileID, e.PayloadHash, e.SentAt,
	)
	if err != nil {
		return fmt.Errorf("append campaign log: %w", err)
	}
	return nil
}

// SentSince reports whether step zero of the campaign was logged for this
// chat at or after the cutoff.
func (s *CampaignLogStore) SentSince(chatID int64, campaign string, cutoff int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM campaign_log
		 WHERE chat_id = ? AND campaign = ? AND step_idx = 0 AND sent_at >= ?
		 LIMIT 1`,
		chatID, campaign, cutoff,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check campaign log: %w", err)
	}
	return true, nil
}

// SentPayloadSince is SentSince narrowed to one payload hash, so distinct
// payloads of the same campaign throttle independently.
func (s *CampaignLogStore) SentPayloadSince(chatID int64, campaign, payloadHash string, cutoff int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM campaign_log
		 WHERE chat_id = ? AND campaign = ? AND payload_hash = ? AND step_idx = 0 AND sent_at >= ?
		 LIMIT 1`,
		chatID, campaign, payloadHash, cutoff,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check campaign log payload: %w", err)
	}
	return true, nil
}

func (s *CampaignLogStore) ListForChat(chatID int64, limit int) ([]model.CampaignLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, chat_id, campaign, step_idx, reason, profile_id, payload_hash, sent_at
		 FROM campaign_log WHERE chat_id = ? ORDER BY sent_at DESC, id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list campaign log: %w", err)
	}
	defer rows.Close()

	var out []model.CampaignLogEntry
	for rows.Next() {
		var e model.CampaignLogEntry
		if err := rows.Scan(&e.ID, &e.ChatID, &e.Campaign, &e.StepIdx, &e.Reason, &e.ProfileID, &e.PayloadHash, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan campaign log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
