// Package callbacks resolves the routing key of an inline button press.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData returns the routing key and payload of cb. Buttons built
// by telebot with a Unique name carry "\f<unique>|<payload>"; any other data
// is a literal key with no payload.
func ParseCallbackData(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	rest, prefixed := strings.CutPrefix(cb.Data, "\f")
	if !prefixed {
		return strings.TrimSpace(cb.Data), ""
	}
	key, payload, _ = strings.Cut(rest, "|")
	return strings.TrimSpace(key), payload
}

// Key prefers the unique name telebot already resolved over parsing Data.
func Key(cb *tele.Callback) string {
	if cb != nil && cb.Unique != "" {
		return cb.Unique
	}
	key, _ := ParseCallbackData(cb)
	return key
}

// CallbackKey is Key for the press carried by c.
func CallbackKey(c tele.Context) string {
	return Key(c.Callback())
}
