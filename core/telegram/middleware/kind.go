package middleware

import tele "gopkg.in/telebot.v4"

// Update kinds understood by rate limit exclusions and metrics.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

// UpdateKind classifies an update for throttling and metrics purposes.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	case upd.Query != nil:
		return KindInlineQuery
	default:
		return KindOther
	}
}
