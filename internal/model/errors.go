package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced auction, item, seller,
	// invoice or settlement does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the request is well formed but the current
	// state forbids it (auction not live, bid too low, illegal transition).
	ErrConflict = errors.New("conflict")

	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid")

	// ErrAlreadyFinalized is returned when closing an auction that is already
	// closed and has invoices. It is a Conflict.
	ErrAlreadyFinalized = fmt.Errorf("%w: auction already finalized", ErrConflict)

	// ErrDuplicate is returned by stores when a uniqueness constraint rejects
	// a write. It is a Conflict.
	ErrDuplicate = fmt.Errorf("%w: duplicate record", ErrConflict)

	// ErrUnavailable is returned when the persistent store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)
