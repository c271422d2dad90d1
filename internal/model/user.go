package model

type User struct {
	ChatID     int64  `json:"chat_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	AddedAt    int64  `json:"added_at"`
	LastReason string `json:"last_reason"`
	LastCoupon string `json:"last_coupon"`
	LastSeen   int64  `json:"last_seen"`
}

// Interest is a recorded view of a profile, used for follow-up targeting.
type Interest struct {
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chat_id"`
	ProfileID int64  `json:"profile_id"`
	Source    string `json:"source"`
	CreatedAt int64  `json:"created_at"`
}
