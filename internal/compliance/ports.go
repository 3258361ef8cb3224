package compliance

import (
	"context"
	"time"
)

// Replier talks back to the user who is composing a report.
type Replier interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	Answer(ctx context.Context, callbackID, text string) error
}

// Notifier forwards a finalized report to the destination channel.
type Notifier interface {
	Deliver(ctx context.Context, photoRef, caption string) error
}

// Outcome values recorded in the journal.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Entry is one journaled submit attempt.
type Entry struct {
	ReportID  string
	UserID    int64
	Submitter string
	Reasons   []string
	Caption   string
	Outcome   string
	Error     string
	At        time.Time
}

// Journal records submit outcomes. Implementations must not block the
// workflow for long; failures are logged by the caller and otherwise ignored.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, Entry) error { return nil }
