package compliance

// Button is a single inline button carrying a literal callback payload.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of inline buttons. A nil Keyboard removes the markup.
type Keyboard [][]Button

const (
	checkMark   = " ✅"
	submitLabel = "📤 Submit"
)

// ReasonKeyboard renders one row per reason in declaration order, marking
// every selected reason, followed by the submit row.
func ReasonKeyboard(p PendingReport) Keyboard {
	kb := make(Keyboard, 0, len(Reasons)+1)
	for _, r := range Reasons {
		label := string(r)
		if p.Has(r) {
			label += checkMark
		}
		kb = append(kb, []Button{{Label: label, Data: string(r)}})
	}
	return append(kb, []Button{{Label: submitLabel, Data: SubmitPayload}})
}
