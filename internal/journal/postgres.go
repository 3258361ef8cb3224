// Package journal persists submit outcomes of compliance reports.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/reportbot/internal/compliance"
)

const insertEntry = `
INSERT INTO report_journal (report_id, user_id, submitter, reasons, caption, outcome, error, recorded_at)
VALUES (:report_id, :user_id, :submitter, :reasons, :caption, :outcome, :error, :recorded_at)`

type row struct {
	ReportID   uuid.UUID      `db:"report_id"`
	UserID     int64          `db:"user_id"`
	Submitter  string         `db:"submitter"`
	Reasons    pq.StringArray `db:"reasons"`
	Caption    string         `db:"caption"`
	Outcome    string         `db:"outcome"`
	Error      string         `db:"error"`
	RecordedAt time.Time      `db:"recorded_at"`
}

// Postgres appends journal entries to the report_journal table.
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, timeout: 3 * time.Second}
}

// Record inserts e. Entries without a parseable report ID get a fresh one.
func (p *Postgres) Record(ctx context.Context, e compliance.Entry) error {
	r, err := toRow(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.db.NamedExecContext(ctx, insertEntry, r); err != nil {
		return fmt.Errorf("journal: insert %s: %w", r.ReportID, err)
	}
	return nil
}

// Recent returns the latest entries for a user, newest first.
func (p *Postgres) Recent(ctx context.Context, userID int64, limit int) ([]compliance.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	var rows []row
	err := p.db.SelectContext(ctx, &rows, `
SELECT report_id, user_id, submitter, reasons, caption, outcome, error, recorded_at
FROM report_journal WHERE user_id = $1 ORDER BY recorded_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent %d: %w", userID, err)
	}
	out := make([]compliance.Entry, len(rows))
	for i, r := range rows {
		out[i] = compliance.Entry{
			ReportID:  r.ReportID.String(),
			UserID:    r.UserID,
			Submitter: r.Submitter,
			Reasons:   []string(r.Reasons),
			Caption:   r.Caption,
			Outcome:   r.Outcome,
			Error:     r.Error,
			At:        r.RecordedAt,
		}
	}
	return out, nil
}

func toRow(e compliance.Entry) (row, error) {
	id, err := uuid.Parse(e.ReportID)
	if err != nil {
		id = uuid.New()
	}
	switch e.Outcome {
	case compliance.OutcomeDelivered, compliance.OutcomeFailed:
	default:
		return row{}, fmt.Errorf("journal: unknown outcome %q", e.Outcome)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	reasons := e.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return row{
		ReportID:   id,
		UserID:     e.UserID,
		Submitter:  e.Submitter,
		Reasons:    pq.StringArray(reasons),
		Caption:    e.Caption,
		Outcome:    e.Outcome,
		Error:      e.Error,
		RecordedAt: at.UTC(),
	}, nil
}
