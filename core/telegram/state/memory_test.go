package state

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestSessionsAreKeyedByUserAndChat(t *testing.T) {
	m := NewMemoryManager()
	a := Key{UserID: 1, ChatID: 10}
	b := Key{UserID: 1, ChatID: 20}
	c := Key{UserID: 2, ChatID: 10}

	m.SetState(a, State("step_one"))
	m.SetTemp(a, "title", "hello")

	if m.GetState(b) != StateIdle || m.GetState(c) != StateIdle {
		t.Fatal("state leaked across keys")
	}
	if _, ok := m.GetTemp(b, "title"); ok {
		t.Fatal("temp data leaked across keys")
	}
	if !m.InProgress(1, 10) {
		t.Fatal("InProgress(1,10) = false")
	}
	if m.InProgress(1, 20) || m.InProgress(2, 10) {
		t.Fatal("InProgress reported foreign sessions")
	}
}

func TestClearRemovesStateAndTempData(t *testing.T) {
	m := NewMemoryManager()
	key := Key{UserID: 1, ChatID: 1}

	m.SetState(key, State("step_one"))
	m.SetTemp(key, "title", "hello")
	m.Clear(key)

	if m.GetState(key) != StateIdle {
		t.Fatalf("state after clear = %s", m.GetState(key))
	}
	if _, ok := m.GetTemp(key, "title"); ok {
		t.Fatal("temp data survived clear")
	}
}

func TestGetTempString(t *testing.T) {
	m := NewMemoryManager()
	key := Key{UserID: 1, ChatID: 1}

	m.SetTemp(key, "title", "hello")
	m.SetTemp(key, "count", 3)

	if s, ok := m.GetTempString(key, "title"); !ok || s != "hello" {
		t.Fatalf("GetTempString(title) = %q %v", s, ok)
	}
	if _, ok := m.GetTempString(key, "count"); ok {
		t.Fatal("GetTempString accepted a non-string value")
	}
	if _, ok := m.GetTempString(key, "missing"); ok {
		t.Fatal("GetTempString found a missing slot")
	}
}

func TestInProgressRequiresRegisteredHandler(t *testing.T) {
	m := NewMemoryManager()
	key := Key{UserID: 9, ChatID: 9}

	// A session awaiting a menu selection holds temp data but no message
	// handler; text must still fall through to command lookup.
	m.SetTemp(key, "prompt_ref", "pending")
	if m.InProgress(9, 9) {
		t.Fatal("menu-awaiting session claimed inbound text")
	}

	RegisterHandler(State("await_reply"), func(c tele.Context) error { return nil })
	m.SetState(key, State("await_reply"))
	if !m.InProgress(9, 9) {
		t.Fatal("InProgress = false for a state with a handler")
	}

	m.SetState(key, State("unregistered_step"))
	if m.InProgress(9, 9) {
		t.Fatal("InProgress = true for a state without a handler")
	}
}

func TestTouchAndExpired(t *testing.T) {
	m := NewMemoryManager()
	expired := Key{UserID: 1, ChatID: 1}
	fresh := Key{UserID: 2, ChatID: 2}
	idle := Key{UserID: 3, ChatID: 3}

	m.SetState(expired, State("step_one"))
	m.Touch(expired, time.Millisecond)
	m.SetState(fresh, State("step_one"))
	m.Touch(fresh, time.Hour)
	m.SetState(idle, StateIdle)
	m.Touch(idle, time.Millisecond)

	keys := m.Expired(time.Now().Add(time.Second))
	if len(keys) != 1 || keys[0] != expired {
		t.Fatalf("Expired = %v", keys)
	}

	// A zero ttl disarms the deadline.
	m.Touch(expired, 0)
	if keys := m.Expired(time.Now().Add(time.Minute)); len(keys) != 0 {
		t.Fatalf("Expired after disarm = %v", keys)
	}
}
