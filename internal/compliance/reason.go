package compliance

// Reason is one of the fixed non-compliance categories. The value doubles as
// the button's callback payload.
type Reason string

const (
	ReasonUniform      Reason = "Uniform not worn"
	ReasonSafetyGear   Reason = "Safety gear missing"
	ReasonLate         Reason = "Late arrival"
	ReasonUnclean      Reason = "Unclean workspace"
	ReasonDisplay      Reason = "Improper product display"
	ReasonUnauthorized Reason = "Unauthorized absence"
)

// SubmitPayload is the callback payload of the submit button.
const SubmitPayload = "submit"

// Reasons lists every reason in keyboard order.
var Reasons = []Reason{
	ReasonUniform,
	ReasonSafetyGear,
	ReasonLate,
	ReasonUnclean,
	ReasonDisplay,
	ReasonUnauthorized,
}

// ParseReason maps a callback payload to a Reason.
func ParseReason(data string) (Reason, bool) {
	for _, r := range Reasons {
		if string(r) == data {
			return r, true
		}
	}
	return "", false
}

// Payloads returns every callback payload the keyboard can produce.
func Payloads() []string {
	out := make([]string, 0, len(Reasons)+1)
	for _, r := range Reasons {
		out = append(out, string(r))
	}
	return append(out, SubmitPayload)
}
