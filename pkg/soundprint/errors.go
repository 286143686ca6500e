package soundprint

import "github.com/soundprint/soundprint/internal/fperr"

// Kind classifies an error the way a caller needs to branch on it.
type Kind = fperr.Kind

// Error is the one error type the public API returns. Use errors.Is
// against the ErrXxx sentinels below to branch on Kind, and errors.As for
// the underlying cause when there is one.
type Error = fperr.Error

const (
	KindInvalidInput = fperr.InvalidInput
	KindTooShort     = fperr.TooShort
	KindIndexCorrupt = fperr.IndexCorrupt
	KindIndexIOError = fperr.IndexIOError
	KindNoMatch      = fperr.NoMatch
	KindAmbiguous    = fperr.Ambiguous
)

var (
	ErrInvalidInput = fperr.ErrInvalidInput
	ErrTooShort     = fperr.ErrTooShort
	ErrIndexCorrupt = fperr.ErrIndexCorrupt
	ErrIndexIOError = fperr.ErrIndexIOError
	ErrNoMatch      = fperr.ErrNoMatch
	ErrAmbiguous    = fperr.ErrAmbiguous
)
