package helpers

import (
	"context"
	"sync/atomic"

	"github.com/m3rciful/reportbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalSender atomic.Pointer[sender.Sender]

// SetSender wires the retrying sender used by helper functions.
func SetSender(s *sender.Sender) {
	globalSender.Store(s)
}

// send runs the call through the sender. once marks calls that must not be
// delivered twice.
func send(c tele.Context, action string, once bool, run func() error) error {
	s := globalSender.Load()
	if s == nil {
		return run()
	}
	do := s.Do
	if once {
		do = s.DoOnce
	}
	return do(BuildContext(c), action, func(context.Context) error { return run() })
}

// SendText sends raw text (no parse mode) to the current chat.
func SendText(c tele.Context, text string, opts ...interface{}) error {
	return send(c, "send.text", true, func() error {
		return c.Send(text, opts...)
	})
}

// Answer acknowledges the current callback query, optionally with a toast.
func Answer(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	return send(c, "callback.answer", false, func() error {
		if text == "" {
			return c.Respond()
		}
		return c.Respond(&tele.CallbackResponse{Text: text})
	})
}
