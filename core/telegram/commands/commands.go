// Package commands defines the metadata kept for each slash command.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command handler plus what the menu shows for it.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Aliases are bare words that also trigger the command when sent as text.
	Aliases []string
	// Hidden keeps the command out of the Telegram menu.
	Hidden bool
}
