package ibak

import (
	"errors"
)

var (
	// Returned (wrapped) when an id given to restore/rm matches no registry entry
	ErrNotFound = errors.New("no backup entry with this id")

	// Returned when the state file exists but cannot be parsed.
	// There is no partial recovery: the whole invocation must abort.
	ErrCorruptState = errors.New("corrupt state file")
)
