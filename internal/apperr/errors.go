// Package apperr defines the fault taxonomy shared by the run pipeline
// and the host boundary. None of these are ever fatal to the process:
// they surface as a logged message and an early return.
package apperr

import "errors"

var (
	// ErrConnection - the host project dump is unavailable or unreadable.
	ErrConnection = errors.New("host unavailable")
	// ErrPrecondition - no timeline open, no bins with clips, no
	// reference audio clips to work from.
	ErrPrecondition = errors.New("precondition not met")
	// ErrSelection - ambiguous or out-of-range bin selection.
	ErrSelection = errors.New("bin selection failed")
	// ErrData - malformed or missing timecode on an item.
	ErrData = errors.New("bad item data")
	// ErrPlacement - the host rejected an append operation.
	ErrPlacement = errors.New("placement rejected")
)
