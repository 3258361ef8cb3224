// Package helpers bridges telebot contexts to the context.Context used by
// the gateway, the workflow and the logger.
package helpers

import (
	"context"

	"github.com/m3rciful/reportbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ctxSlot is the tele.Context key holding the update's context.Context.
const ctxSlot = "reportbot.ctx"

// StoreContext replaces the context.Context carried by c.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxSlot, ctx)
	}
}

// ContextFrom returns the context.Context carried by c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxSlot).(context.Context)
	return ctx, ok
}

// BuildContext returns the update's context, creating it on first use with
// the correlation id, the update identifiers and the tg logger attached.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	id := c.Update().ID
	user, chat := SenderID(c), ChatID(c)
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(id, chat, user)
	}
	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), id, user, chat)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler names the handler in the update's context and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}

func SenderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func ChatID(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	return 0
}
