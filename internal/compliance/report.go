package compliance

import "slices"

// MessageRef identifies a message the bot sent, so it can be edited later.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// IsZero reports whether the reference points at nothing.
func (m MessageRef) IsZero() bool { return m.ChatID == 0 && m.MessageID == 0 }

// PendingReport is a report being composed by one user.
type PendingReport struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	PhotoRef  string     `json:"photo_ref"`
	Remarks   string     `json:"remarks"`
	Timestamp string     `json:"timestamp"`
	Submitter string     `json:"submitter"`
	Selected  []Reason   `json:"selected"`
	Prompt    MessageRef `json:"prompt"`
}

// Has reports whether r is currently selected.
func (p PendingReport) Has(r Reason) bool {
	return slices.Contains(p.Selected, r)
}

// Toggle removes r when selected, otherwise appends it. A re-added reason
// moves to the end. Selected is always rebuilt so that copies held by a
// store never share a backing array with the caller.
func (p *PendingReport) Toggle(r Reason) {
	next := make([]Reason, 0, len(p.Selected)+1)
	found := false
	for _, s := range p.Selected {
		if s == r {
			found = true
			continue
		}
		next = append(next, s)
	}
	if !found {
		next = append(next, r)
	}
	p.Selected = next
}

// ReasonStrings returns the selection as plain strings in toggle order.
func (p PendingReport) ReasonStrings() []string {
	out := make([]string, len(p.Selected))
	for i, r := range p.Selected {
		out[i] = string(r)
	}
	return out
}
