package state

import (
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

// NewMemoryManager constructs an in-memory Manager implementation.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[Key]*Session),
	}
}

// Get returns the session for a key if it exists, otherwise a default idle session.
func (m *memoryManager) Get(key Key) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.sessions[key]; ok {
		return session
	}

	return &Session{State: StateIdle, TempData: make(map[string]interface{})}
}

func (m *memoryManager) ensureLocked(key Key) *Session {
	session, ok := m.sessions[key]
	if !ok {
		session = &Session{TempData: make(map[string]interface{})}
		m.sessions[key] = session
	}
	return session
}

// SetState sets the FSM state for the given key.
func (m *memoryManager) SetState(key Key, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(key).State = st
}

// GetState returns the current FSM state of a key, or StateIdle if none exists.
func (m *memoryManager) GetState(key Key) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[key]; ok {
		return sess.State
	}
	return StateIdle
}

// HasState checks if a key has an active state other than idle.
func (m *memoryManager) HasState(key Key) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[key]
	return ok && sess.State != StateIdle
}

// SetTemp stores a temporary key/value pair for the given session.
func (m *memoryManager) SetTemp(key Key, name string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(key).TempData[name] = value
}

// GetTemp retrieves a temporary value by name for the given session.
func (m *memoryManager) GetTemp(key Key, name string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	val, ok := session.TempData[name]
	return val, ok
}

// GetTempString retrieves a temporary value by name and asserts it as string.
func (m *memoryManager) GetTempString(key Key, name string) (string, bool) {
	val, found := m.GetTemp(key, name)
	if !found {
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// ClearTemp removes a temporary key/value pair for the given session.
func (m *memoryManager) ClearTemp(key Key, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[key]; ok {
		delete(session.TempData, name)
	}
}

// Clear removes the entire session for a key.
func (m *memoryManager) Clear(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
}

// Touch arms the expiry deadline of the current step.
func (m *memoryManager) Touch(key Key, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.ensureLocked(key)
	if ttl <= 0 {
		sess.Deadline = time.Time{}
		return
	}
	sess.Deadline = time.Now().Add(ttl)
}

// Expired returns keys of active sessions whose deadline passed before now.
func (m *memoryManager) Expired(now time.Time) []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []Key
	for key, sess := range m.sessions {
		if sess.State == StateIdle {
			continue
		}
		if !sess.Deadline.IsZero() && sess.Deadline.Before(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// InProgress reports whether the (user, chat) pair has an active FSM state
// with a registered handler. Sessions awaiting a callback selection (no
// message handler) do not claim inbound text, so command lookup still works
// while a menu is open.
func (m *memoryManager) InProgress(userID, chatID int64) bool {
	st := m.GetState(Key{UserID: userID, ChatID: chatID})
	if st == StateIdle {
		return false
	}
	_, ok := fsmHandlers[st]
	return ok
}

// ManagerHandler executes the handler function registered for the session's current state, if any.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	key := KeyFrom(c)
	current := m.GetState(key)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", key.UserID),
		slog.Int64("chat_id", key.ChatID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
