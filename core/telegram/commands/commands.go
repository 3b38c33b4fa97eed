// Package commands describes bot commands registered in the Telegram registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is one slash command with its handler and menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are kept out of the public command menu.
	AdminOnly bool
	Hidden    bool
	// Aliases are plain-text spellings routed to the same handler, matched
	// case-insensitively (for example "done" for /done).
	Aliases []string
}
