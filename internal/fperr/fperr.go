// Package fperr defines the error taxonomy shared by every core package.
// It has no dependencies on the rest of the module so that the DSP,
// indexing and matching packages can return typed errors without importing
// the public facade, and the facade can re-export the same type without a
// dependency cycle.
package fperr

import "fmt"

// Kind classifies a core error the way a caller needs to branch on it.
type Kind int

const (
	// InvalidInput covers empty waveforms, non-finite samples, or a
	// target rate that violates the source Nyquist limit.
	InvalidInput Kind = iota
	// TooShort means the waveform has fewer than one complete STFT frame
	// after decimation.
	TooShort
	// IndexCorrupt means a database file failed its magic or length
	// checks on load.
	IndexCorrupt
	// IndexIOError wraps an underlying read/write failure.
	IndexIOError
	// NoMatch means identification produced no candidate meeting the
	// score and margin thresholds.
	NoMatch
	// Ambiguous means the top two candidates were within the decision
	// margin of each other.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case TooShort:
		return "too_short"
	case IndexCorrupt:
		return "index_corrupt"
	case IndexIOError:
		return "index_io_error"
	case NoMatch:
		return "no_match"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Error is the one exported error type for the core. Kind lets callers
// branch with errors.Is against the package-level sentinels; Err carries
// the underlying cause when there is one.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, fperr.ErrNoMatch) match any *Error of that Kind,
// regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error carrying no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinels for errors.Is comparisons against a bare kind, e.g.
// errors.Is(err, fperr.ErrNoMatch).
var (
	ErrInvalidInput = &Error{Kind: InvalidInput, Msg: "invalid input"}
	ErrTooShort     = &Error{Kind: TooShort, Msg: "too short"}
	ErrIndexCorrupt = &Error{Kind: IndexCorrupt, Msg: "index corrupt"}
	ErrIndexIOError = &Error{Kind: IndexIOError, Msg: "index io error"}
	ErrNoMatch      = &Error{Kind: NoMatch, Msg: "no match"}
	ErrAmbiguous    = &Error{Kind: Ambiguous, Msg: "ambiguous"}
)
