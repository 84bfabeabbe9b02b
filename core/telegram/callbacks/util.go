// Package callbacks decodes inline-button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the button's unique name and its data argument.
// Telebot only splits "\f<unique>|<data>" for buttons registered by unique;
// a generic OnCallback handler sees the raw form in Data.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey is the unique name of the tapped button, if any.
func CallbackKey(c tele.Context) string {
	unique, _ := ParseCallbackData(c.Callback())
	return unique
}
