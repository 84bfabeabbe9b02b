// Package state persists one conversation state label per Telegram user.
// Labels are opaque here; callers own the mapping to their state machine.
package state
