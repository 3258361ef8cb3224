package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/core/telegram/state"
)

// User-facing texts.
const (
	PromptText       = "Select the reasons for non-compliance, then press Submit:"
	ConfirmationText = "✅ Report sent to the compliance channel."
	NoSelectionText  = "⚠️ Please select at least one reason before submitting."
	FailureText      = "❌ Could not send the report. Please send the photo again."
	CancelledText    = "🗑 Report discarded."
	StaleNotice      = "This report is no longer active."
	UnknownNotice    = "Unsupported action"

	timestampLayout = "2006-01-02 15:04:05"
	component       = "report"
)

// Deps wires a Workflow to its collaborators.
type Deps struct {
	Store    state.Store[PendingReport]
	Replier  Replier
	Notifier Notifier
	// Journal is optional.
	Journal Journal

	Location       *time.Location
	DefaultRemarks string
	Now            func() time.Time
}

// Workflow turns photo messages and button presses into compliance reports.
// Calls for one user must be serialized by the caller; calls for different
// users may run concurrently.
type Workflow struct {
	store    state.Store[PendingReport]
	replier  Replier
	notifier Notifier
	journal  Journal
	loc      *time.Location
	remarks  string
	now      func() time.Time
}

// NewWorkflow validates deps and applies defaults.
func NewWorkflow(d Deps) (*Workflow, error) {
	if d.Store == nil || d.Replier == nil || d.Notifier == nil {
		return nil, errors.New("compliance: store, replier and notifier are required")
	}
	w := &Workflow{
		store:    d.Store,
		replier:  d.Replier,
		notifier: d.Notifier,
		journal:  d.Journal,
		loc:      d.Location,
		remarks:  strings.TrimSpace(d.DefaultRemarks),
		now:      d.Now,
	}
	if w.journal == nil {
		w.journal = nopJournal{}
	}
	if w.loc == nil {
		w.loc = time.UTC
	}
	if w.remarks == "" {
		w.remarks = "No remarks"
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w, nil
}

// Dispatch routes an update to its handler.
func (w *Workflow) Dispatch(ctx context.Context, u Update) error {
	switch v := u.(type) {
	case PhotoMessage:
		return w.HandlePhoto(ctx, v)
	case CallbackPress:
		return w.HandlePress(ctx, v)
	default:
		return fmt.Errorf("compliance: unsupported update %T", u)
	}
}

// HandlePhoto opens a new report for the sender, discarding any report the
// sender already had open.
func (w *Workflow) HandlePhoto(ctx context.Context, m PhotoMessage) error {
	at := m.At
	if at.IsZero() {
		at = w.now()
	}
	remarks := strings.TrimSpace(m.Caption)
	if remarks == "" {
		remarks = w.remarks
	}
	rep := PendingReport{
		ID:        uuid.NewString(),
		UserID:    m.UserID,
		PhotoRef:  m.PhotoRef,
		Remarks:   remarks,
		Timestamp: at.In(w.loc).Format(timestampLayout),
		Submitter: m.DisplayName,
	}

	ctx = logger.WithReport(ctx, rep.ID)

	_, replaced, err := w.store.Get(ctx, m.UserID)
	if err != nil {
		return err
	}

	ref, err := w.replier.Send(ctx, m.ChatID, PromptText, ReasonKeyboard(rep))
	if err != nil {
		// The new photo supersedes the old report even if its prompt never arrived.
		if replaced {
			_ = w.store.Delete(ctx, m.UserID)
		}
		return fmt.Errorf("send prompt: %w", err)
	}
	rep.Prompt = ref
	if err := w.store.Set(ctx, m.UserID, rep); err != nil {
		return err
	}

	logger.Info(ctx, component, "report.opened", slog.Bool("replaced", replaced))
	return nil
}

// HandlePress applies a button press to the sender's open report and
// answers the callback query.
func (w *Workflow) HandlePress(ctx context.Context, p CallbackPress) error {
	notice, err := w.press(ctx, p)
	if p.CallbackID != "" {
		if ackErr := w.replier.Answer(ctx, p.CallbackID, notice); ackErr != nil {
			logger.Debug(ctx, component, "callback.answer_failed", slog.String("err", ackErr.Error()))
		}
	}
	if err == nil || recovered(err) {
		return nil
	}
	return err
}

func (w *Workflow) press(ctx context.Context, p CallbackPress) (string, error) {
	reason, isReason := ParseReason(p.Data)
	if !isReason && p.Data != SubmitPayload {
		logger.Warn(ctx, component, "callback.unknown", slog.String("cb_key", logger.SanitizeLimit(p.Data, 64)))
		return UnknownNotice, ErrUnknownCallback
	}

	rep, ok, err := w.store.Get(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		logger.Info(ctx, component, "callback.no_session", slog.String("cb_key", p.Data))
		return "", ErrNoPendingReport
	}
	ctx = logger.WithReport(ctx, rep.ID)
	if !p.Message.IsZero() && !rep.Prompt.IsZero() && p.Message != rep.Prompt {
		logger.Info(ctx, component, "callback.stale", slog.String("cb_key", p.Data))
		return StaleNotice, ErrStaleKeyboard
	}

	if isReason {
		return "", w.toggle(ctx, rep, reason)
	}
	return "", w.submit(ctx, rep)
}

func (w *Workflow) toggle(ctx context.Context, rep PendingReport, reason Reason) error {
	rep.Toggle(reason)
	if err := w.store.Set(ctx, rep.UserID, rep); err != nil {
		return err
	}
	logger.Debug(ctx, component, "report.toggled",
		slog.String("reason", string(reason)),
		slog.Bool("selected", rep.Has(reason)),
	)
	return w.replier.Edit(ctx, rep.Prompt, PromptText, ReasonKeyboard(rep))
}

func (w *Workflow) submit(ctx context.Context, rep PendingReport) error {
	if len(rep.Selected) == 0 {
		logger.Info(ctx, component, "report.no_selection")
		if err := w.replier.Edit(ctx, rep.Prompt, NoSelectionText, ReasonKeyboard(rep)); err != nil {
			return err
		}
		return ErrNoSelection
	}

	caption := Caption(rep)
	entry := Entry{
		ReportID:  rep.ID,
		UserID:    rep.UserID,
		Submitter: rep.Submitter,
		Reasons:   rep.ReasonStrings(),
		Caption:   caption,
		At:        w.now(),
	}

	if err := w.notifier.Deliver(ctx, rep.PhotoRef, caption); err != nil {
		derr := &DeliveryError{Op: "deliver", Err: err}
		logger.Error(ctx, component, "report.delivery_failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if delErr := w.store.Delete(ctx, rep.UserID); delErr != nil {
			return delErr
		}
		entry.Outcome, entry.Error = OutcomeFailed, err.Error()
		w.record(ctx, entry)
		if editErr := w.replier.Edit(ctx, rep.Prompt, FailureText, nil); editErr != nil {
			return editErr
		}
		return derr
	}

	if err := w.store.Delete(ctx, rep.UserID); err != nil {
		return err
	}
	entry.Outcome = OutcomeDelivered
	w.record(ctx, entry)
	logger.Info(ctx, component, "report.submitted",
		slog.Any("reasons", entry.Reasons),
	)
	return w.replier.Edit(ctx, rep.Prompt, ConfirmationText, nil)
}

// Cancel discards the user's open report. It reports whether one existed.
func (w *Workflow) Cancel(ctx context.Context, userID int64) (bool, error) {
	rep, ok, err := w.store.Get(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	if err := w.store.Delete(ctx, userID); err != nil {
		return false, err
	}
	logger.Info(ctx, component, "report.cancelled", slog.String("report_id", rep.ID))
	if !rep.Prompt.IsZero() {
		if err := w.replier.Edit(ctx, rep.Prompt, CancelledText, nil); err != nil {
			logger.Debug(ctx, component, "report.cancel_edit_failed", slog.String("err", err.Error()))
		}
	}
	return true, nil
}

func (w *Workflow) record(ctx context.Context, e Entry) {
	if err := w.journal.Record(ctx, e); err != nil {
		logger.Warn(ctx, component, "journal.record_failed",
			slog.String("report_id", e.ReportID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
