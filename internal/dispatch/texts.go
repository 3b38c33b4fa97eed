package dispatch

import (
	"strings"

	"github.com/ileafrica/ilebot/internal/users"
)

func welcomeText(u users.User) string {
	name := u.FirstName
	if name == "" {
		name = "there"
	}
	return "Hello " + name + "! Welcome to Ilé.\n\n" +
		"I help you list properties on the Ilé marketplace. " +
		"Send /add_property to submit one, or /help to see all commands."
}

func helpText(u users.User) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("/add_property - submit a new property\n")
	b.WriteString("/done - finish uploading images\n")
	b.WriteString("/cancel - cancel the current submission\n")
	b.WriteString("/my_properties - list your submissions\n")
	b.WriteString("/help - show this message")
	if u.IsAdmin {
		b.WriteString("\n\nAdmin commands:\n")
		b.WriteString("/pending - review pending properties\n")
		b.WriteString("/all_properties - list every property\n")
		b.WriteString("/ban <chat id> - block a user from submitting\n")
		b.WriteString("/unban <chat id> - lift a ban")
	}
	return b.String()
}
