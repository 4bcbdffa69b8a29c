package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation for the key.
	StateIdle State = "idle"
)

// Key identifies a conversation: one user acting in one chat. Two users in the
// same chat, or one user across two chats, hold independent sessions and never
// consume each other's messages.
type Key struct {
	UserID int64
	ChatID int64
}

// KeyFrom builds the session key for the sender and chat of an update.
func KeyFrom(c tele.Context) Key {
	var key Key
	if user := c.Sender(); user != nil {
		key.UserID = user.ID
	}
	if chat := c.Chat(); chat != nil {
		key.ChatID = chat.ID
	}
	return key
}

// Session stores conversation state, partially collected data and the expiry
// deadline of the current step.
type Session struct {
	State    State
	TempData map[string]interface{}
	Deadline time.Time
}

// Manager orchestrates conversation sessions and FSM state transitions.
type Manager interface {
	Get(key Key) *Session
	SetState(key Key, st State)
	GetState(key Key) State
	HasState(key Key) bool
	SetTemp(key Key, name string, value interface{})
	GetTemp(key Key, name string) (interface{}, bool)
	GetTempString(key Key, name string) (string, bool)
	ClearTemp(key Key, name string)
	Clear(key Key)

	// Touch arms the expiry deadline of the current step.
	Touch(key Key, ttl time.Duration)
	// Expired returns keys whose deadline passed before now.
	Expired(now time.Time) []Key

	InProgress(userID, chatID int64) bool
	ManagerHandler(c tele.Context) error
}
