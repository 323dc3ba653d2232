package workflow

import "errors"

// ErrIllegalTransition is returned when the run tries an edge outside the
// transition table.
var ErrIllegalTransition = errors.New("illegal state transition")
