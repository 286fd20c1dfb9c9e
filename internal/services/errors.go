package services

import "errors"

var (
	// ErrNotClosable rejects a close-out of the aggregated card-spend row.
	ErrNotClosable = errors.New("item cannot be closed out")
	// ErrUnknownKind rejects a close-out of anything but income or fixed cost.
	ErrUnknownKind = errors.New("unknown series kind")

	ErrSavingNotFound = errors.New("saving not found")
	ErrNotDeletable   = errors.New("saving cannot be deleted")
	ErrNotFinalizable = errors.New("saving cannot be finalized")
)
