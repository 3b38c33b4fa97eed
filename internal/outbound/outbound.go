// Package outbound describes the messages the bot sends, independent of
// the Telegram client.
package outbound

// Action is an inline button. ID selects the handler, Payload is passed to it.
type Action struct {
	ID      string
	Payload string
	Label   string
}

// Message is one outgoing chat message. Markup precedence when several are
// set: RemoveKeyboard, then Options (reply keyboard), then Actions.
type Message struct {
	ChatID         int64
	Text           string
	Options        []string
	Actions        [][]Action
	RemoveKeyboard bool
}

// Text returns a plain message.
func Text(chatID int64, text string) Message {
	return Message{ChatID: chatID, Text: text}
}
