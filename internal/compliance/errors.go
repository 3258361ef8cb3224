package compliance

import "errors"

var (
	// ErrNoSelection is returned when submit is pressed with nothing selected.
	ErrNoSelection = errors.New("compliance: no reason selected")
	// ErrUnknownCallback marks a payload that is neither a reason nor submit.
	ErrUnknownCallback = errors.New("compliance: unknown callback")
	// ErrNoPendingReport marks a press from a user with no open report.
	ErrNoPendingReport = errors.New("compliance: no pending report")
	// ErrStaleKeyboard marks a press on a keyboard other than the current prompt.
	ErrStaleKeyboard = errors.New("compliance: stale keyboard")
)

// DeliveryError reports a failure to forward a report to the destination.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return "compliance: " + e.Op + ": " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// recovered reports whether err is handled inside the workflow and must not
// surface as a handler failure.
func recovered(err error) bool {
	var derr *DeliveryError
	return errors.Is(err, ErrNoSelection) ||
		errors.Is(err, ErrUnknownCallback) ||
		errors.Is(err, ErrNoPendingReport) ||
		errors.Is(err, ErrStaleKeyboard) ||
		errors.As(err, &derr)
}
