package chat

// Update is one inbound event from the chat platform's long-poll feed.
type Update struct {
	UpdateID int64     `json:"update_id"`
	Message  *Message  `json:"message,omitempty"`
	Callback *Callback `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *Actor `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Callback is an inline button tap. Data carries the action token the button
// was created with.
type Callback struct {
	ID      string   `json:"id"`
	From    Actor    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type Actor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// ChatID of the update's originator, or 0 when it carries neither a message
// nor a callback.
func (u *Update) ChatID() int64 {
	if u.Message != nil {
		return u.Message.Chat.ID
	}
	if u.Callback != nil {
		if u.Callback.Message != nil {
			return u.Callback.Message.Chat.ID
		}
		return u.Callback.From.ID
	}
	return 0
}

func (u *Update) From() *Actor {
	if u.Message != nil {
		return u.Message.From
	}
	if u.Callback != nil {
		return &u.Callback.From
	}
	return nil
}
