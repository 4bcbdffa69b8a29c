// Package state provides a lightweight FSM/session manager for Telegram bots.
// Sessions are keyed by (user, chat) so concurrent conversations stay isolated.
package state
