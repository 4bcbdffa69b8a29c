package state

import tele "gopkg.in/telebot.v4"

const sessionKey = "fsm_session"

// WithSession injects a session from Manager into the handler context.
func WithSession(mgr Manager) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			session := mgr.Get(KeyFrom(c))

			// Store the session in context so it can be retrieved later
			c.Set(sessionKey, session)

			return next(c)
		}
	}
}

// SessionFrom returns the session previously injected by WithSession.
func SessionFrom(c tele.Context) (*Session, bool) {
	if v := c.Get(sessionKey); v != nil {
		if s, ok := v.(*Session); ok {
			return s, true
		}
	}
	return nil, false
}
