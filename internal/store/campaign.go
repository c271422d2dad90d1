package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mirelabs/velora/internal/model"
)

type CampaignStore struct {
	db *sql.DB
}

func NewCampaignStore(db *sql.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// Get returns the campaign row, or nil when the campaign has never been
// materialized in the database. Callers treat nil as "use built-in defaults".
func (s *CampaignStore) Get(name string) (*model.Campaign, error) {
	row := s.db.QueryRow(
		`SELECT name, title, enabled, cooldown_hours, updated_at, created_at
		 FROM campaigns WHERE name = ?`,
		name,
	)
	var c model.Campaign
	err := row.Scan(&c.Name, &c.Title, &c.Enabled, &c.CooldownHours, &c.UpdatedAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign %q: %w", name, err)
	}
	return &c, nil
}

func (s *CampaignStore) List() ([]model.Campaign, error) {
	rows, err := s.db.Query(
		`SELECT name, title, enabled, cooldown_hours, updated_at, created_at
		 FROM campaigns ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.Name, &c.Title, &c.Enabled, &c.CooldownHours, &c.UpdatedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ensure creates the campaign row if it does not exist yet, leaving any
// operator edits (enabled flag, cooldown) untouched.
func (s *CampaignStore) Ensure(name, title string, cooldownHours int, now int64) error {
	_, err := s.db.Exec(
		`INSERT INTO campaigns (name, title, cooldown_hours, updated_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, title, cooldownHours, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensure campaign %q: %w", name, err)
	}
	return nil
}

func (s *CampaignStore) SetEnabled(name string, enabled bool, now int64) error {
	_, err := s.db.Exec(
		`UPDATE campaigns SET enabled = ?, updated_at = ? WHERE name = ?`,
		enabled, now, name,
	)
	if err != nil {
		return fmt.Errorf("set campaign %q enabled: %w", name, err)
	}
	return nil
}

// Steps returns the operator-edited steps for a campaign, ordered by step
// index. An empty result means no override exists.
func (s *CampaignStore) Steps(name string) ([]model.CampaignStep, error) {
	rows, err := s.db.Query(
		`SELECT kind, delay, text, caption, image, buttons_json
		 FROM campaign_steps WHERE campaign_name = ? ORDER BY step_idx ASC`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps for %q: %w", name, err)
	}
	defer rows.Close()

	var steps []model.CampaignStep
	for rows.Next() {
		var st model.CampaignStep
		var buttons string
		if err := rows.Scan(&st.Kind, &st.Delay, &st.Text, &st.Caption, &st.Image, &buttons); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if buttons != "" && buttons != "[]" {
			if err := json.Unmarshal([]byte(buttons), &st.Buttons); err != nil {
				return nil, fmt.Errorf("decode buttons for %q: %w", name, err)
			}
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// ReplaceSteps swaps the full step list for a campaign in one transaction.
func (s *CampaignStore) ReplaceSteps(name string, steps []model.CampaignStep) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM campaign_steps WHERE campaign_name = ?`, name); err != nil {
		return fmt.Errorf("clear steps for %q: %w", name, err)
	}
	for i, st := range steps {
		buttons := "[]"
		if len(st.Buttons) > 0 {
			blob, err := json.Marshal(st.Buttons)
			if err != nil {
				return fmt.Errorf("encode buttons: %w", err)
			}
			buttons = string(blob)
		}
		if _, err := tx.Exec(
			`INSERT INTO campaign_steps (campaign_name, step_idx, kind, delay, text, caption, image, buttons_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			name, i, st.Kind, st.Delay, st.Text, st.Caption, st.Image, buttons,
		); err != nil {
			return fmt.Errorf("insert step %d for %q: %w", i, name, err)
		}
	}
	return tx.Commit()
}
