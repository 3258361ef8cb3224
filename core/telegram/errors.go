package telegram

import (
	"errors"
	"fmt"
)

// ErrDecode marks an inbound webhook body that is not a valid update.
var ErrDecode = errors.New("telegram: malformed update")

// TransportError reports that an update source gave up after repeated
// failures talking to the Bot API. It is fatal for the process.
type TransportError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
