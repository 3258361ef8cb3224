package compliance

import "time"

// Update is a normalized inbound event.
type Update interface {
	User() int64
}

// PhotoMessage is a photo sent to the bot.
type PhotoMessage struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	PhotoRef    string
	Caption     string
	At          time.Time
}

func (m PhotoMessage) User() int64 { return m.UserID }

// CallbackPress is a press on one of the bot's inline buttons.
type CallbackPress struct {
	UserID     int64
	CallbackID string
	Message    MessageRef
	Data       string
}

func (p CallbackPress) User() int64 { return p.UserID }
