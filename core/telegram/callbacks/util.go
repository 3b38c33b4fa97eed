// Package callbacks decodes inline button data produced by tele.ReplyMarkup.Data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator splits the unique key from the payload in callback data.
const Separator = "|"

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding. Data
// without the form-feed marker is parsed the same way.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ = strings.Cut(raw, Separator)
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}
