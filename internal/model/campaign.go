package model

const (
	StepText  = "text"
	StepPhoto = "photo"
)

type Campaign struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	Enabled       bool   `json:"enabled"`
	CooldownHours int    `json:"cooldown_hours"`
	UpdatedAt     int64  `json:"updated_at"`
	CreatedAt     int64  `json:"created_at"`
}

// Button is one inline keyboard button: a label plus either an external URL
// or an internal action token, never both.
type Button struct {
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
	Action string `json:"action,omitempty"`
}

// CampaignStep is one outbound message of a campaign. Delay is seconds
// relative to the previous step's actual send, not campaign start.
type CampaignStep struct {
	Kind    string     `json:"kind"`
	Delay   int        `json:"delay"`
	Text    string     `json:"text,omitempty"`
	Caption string     `json:"caption,omitempty"`
	Image   string     `json:"image,omitempty"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// CampaignLogEntry is the append-only record of every step attempt and the
// sole source of truth for throttling.
type CampaignLogEntry struct {
	ID          int64
	ChatID      int64
	Campaign    string
	StepIdx     int
	Reason      string
	ProfileID   int64
	PayloadHash string
	SentAt      int64
}
