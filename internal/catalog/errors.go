package catalog

import "errors"

var (
	// ErrInsufficientStock is returned when a decrement would push stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity rejects non-positive decrement quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
