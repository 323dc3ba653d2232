package model

import (
	"errors"
	"strings"
)

// Sentinel error kinds. Match with errors.Is.
var (
	ErrInput     = errors.New("invalid input")
	ErrPlanning  = errors.New("planning failed")
	ErrRetrieval = errors.New("retrieval failed")
	ErrReasoning = errors.New("reasoning service failed")
	ErrScoring   = errors.New("scoring failed")
	ErrReporting = errors.New("reporting failed")
)

// Error is a kind-tagged error with the failing operation attached.
type Error struct {
	Op            string
	Kind          error
	Msg           string
	MissingFields []string
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.MissingFields) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(e.MissingFields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with kind for op. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// WithMsg sets a human-readable message.
func (e *Error) WithMsg(msg string) *Error {
	e.Msg = msg
	return e
}

// NewInputError reports an invalid profile with the offending fields.
func NewInputError(op string, missing []string) *Error {
	return &Error{Op: op, Kind: ErrInput, MissingFields: missing}
}

// MissingFields extracts the missing field list of an input error, if any.
func MissingFields(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.MissingFields
	}
	return nil
}

// KindOf returns the first sentinel kind err matches, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrInput, ErrPlanning, ErrRetrieval, ErrReasoning, ErrScoring, ErrReporting} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
