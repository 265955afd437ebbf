package errors

import "errors"

var (
	ErrLedgerNotFound = errors.New("resource ledger not found")

	ErrInsufficientCapacity = errors.New("insufficient capacity")
)
