package middleware

import (
	"context"

	tghelpers "github.com/m3rciful/reportbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Counters tallies the outbound Bot API calls made while handling one update.
// An update is handled on a single lane, so no locking is needed.
type Counters struct {
	Sent     int
	Edited   int
	Photos   int
	Answered int
	Keyboard bool
}

// Outbound call kinds accepted by Counters.Record.
const (
	CallSend   = "send"
	CallEdit   = "edit"
	CallPhoto  = "photo"
	CallAnswer = "answer"
)

// Record counts one successful call. It is a no-op on a nil receiver so
// callers outside an update need no checks.
func (c *Counters) Record(kind string, withKeyboard bool) {
	if c == nil {
		return
	}
	switch kind {
	case CallSend:
		c.Sent++
	case CallEdit:
		c.Edited++
	case CallPhoto:
		c.Photos++
	case CallAnswer:
		c.Answered++
	}
	if withKeyboard {
		c.Keyboard = true
	}
}

// Replies is the number of messages sent or edited.
func (c *Counters) Replies() int {
	if c == nil {
		return 0
	}
	return c.Sent + c.Edited + c.Photos
}

type countersKey struct{}

// WithCounters returns ctx carrying a fresh Counters.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	cnt := &Counters{}
	return context.WithValue(ctx, countersKey{}, cnt), cnt
}

// CountersFrom returns the counters of the update ctx belongs to, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	cnt, _ := ctx.Value(countersKey{}).(*Counters)
	return cnt
}

// metricsContext counts replies made through tele.Context itself.
type metricsContext struct {
	tele.Context
	cnt *Counters
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.cnt.Record(CallSend, hasKeyboard(opts))
	}
	return err
}

func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.cnt.Record(CallEdit, hasKeyboard(opts))
	}
	return err
}

func (m metricsContext) Respond(resp ...*tele.CallbackResponse) error {
	err := m.Context.Respond(resp...)
	if err == nil {
		m.cnt.Record(CallAnswer, false)
	}
	return err
}

// MessageMetricsMiddleware attaches per-update Counters to the stored
// request context. Calls made through the gateway with that context and
// replies made through tele.Context are both counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cnt := WithCounters(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		return next(metricsContext{Context: c, cnt: cnt})
	}
}

// GetCounters returns a snapshot of the update's counters.
func GetCounters(c tele.Context) Counters {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return Counters{}
	}
	if cnt := CountersFrom(ctx); cnt != nil {
		return *cnt
	}
	return Counters{}
}
