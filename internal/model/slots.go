package model

// SlotSubscription tracks which slot keys a subscriber has already seen for
// one profile. KnownSlots is overwritten wholesale on every watcher tick.
type SlotSubscription struct {
	ChatID         int64    `json:"chat_id"`
	ProfileID      int64    `json:"profile_id"`
	KnownSlots     []string `json:"known_slots"`
	CreatedAt      int64    `json:"created_at"`
	LastNotifiedAt int64    `json:"last_notified_at"`
}

// ChannelState is the broadcast-channel counterpart of SlotSubscription,
// keyed by profile only.
type ChannelState struct {
	ProfileID    int64    `json:"profile_id"`
	KnownSlots   []string `json:"known_slots"`
	LastPostedAt int64    `json:"last_posted_at"`
}
