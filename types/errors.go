package types

import "errors"

// Arithmetic errors raised by Amount and Dec. They are never recovered by
// saturating: callers abort the operation that produced them.
var (
	ErrOverflow      = errors.New("types: arithmetic overflow")
	ErrUnderflow     = errors.New("types: arithmetic underflow")
	ErrDivideByZero  = errors.New("types: division by zero")
	ErrInvalidAmount = errors.New("types: invalid amount")
	ErrInvalidDec    = errors.New("types: invalid decimal")
)
