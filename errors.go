package streamswap

import (
	"errors"
	"fmt"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/threshold"
	"github.com/xraph/streamswap/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("streamswap: not found")
	ErrAlreadyExists = errors.New("streamswap: already exists")
	ErrUnauthorized  = errors.New("streamswap: unauthorized")

	// Lookup errors
	ErrStreamNotFound   = errors.New("streamswap: stream not found")
	ErrPositionNotFound = errors.New("streamswap: position not found")
	ErrParamsNotFound   = errors.New("streamswap: params not found")

	// Creation errors
	ErrInvalidName          = errors.New("streamswap: invalid stream name")
	ErrInvalidURL           = errors.New("streamswap: invalid stream url")
	ErrInDenomNotAccepted   = errors.New("streamswap: in denom is not accepted")
	ErrSameDenom            = errors.New("streamswap: in and out denoms must differ")
	ErrZeroOutSupply        = errors.New("streamswap: out supply must be positive")
	ErrStreamInvalidEndTime = errors.New("streamswap: stream end time must be after start time")
	ErrInvalidStartTime     = errors.New("streamswap: stream start time cannot be in the past")
	ErrDurationTooShort     = errors.New("streamswap: stream duration is too short")
	ErrStartsTooSoon        = errors.New("streamswap: stream starts too soon")

	// Buyer errors
	ErrZeroAmount         = errors.New("streamswap: amount must be positive")
	ErrWithdrawExceeds    = errors.New("streamswap: withdraw amount exceeds balance")
	ErrPositionExited     = errors.New("streamswap: position already exited")
	ErrNoOperatorTarget   = errors.New("streamswap: operator target must be the sender")
	ErrInvalidOperator    = errors.New("streamswap: invalid operator")
	ErrInvalidParamUpdate = errors.New("streamswap: invalid params update")

	// Lifecycle errors
	ErrStreamEnded            = errors.New("streamswap: stream has ended")
	ErrStreamNotEnded         = errors.New("streamswap: stream has not ended")
	ErrStreamPaused           = errors.New("streamswap: stream is paused")
	ErrStreamNotPaused        = errors.New("streamswap: stream is not paused")
	ErrStreamCancelled        = errors.New("streamswap: stream is cancelled")
	ErrStreamNotCancelled     = errors.New("streamswap: stream is not cancelled")
	ErrStreamAlreadyPaused    = errors.New("streamswap: stream is already paused")
	ErrStreamIsCancelled      = errors.New("streamswap: stream is already cancelled")
	ErrStreamAlreadyFinalized = errors.New("streamswap: stream is already finalized")
	ErrStreamFinalized        = errors.New("streamswap: stream is finalized")
	ErrStreamNotStarted       = errors.New("streamswap: stream has not started")
	ErrStreamNotActive        = errors.New("streamswap: stream is not active")

	// Store errors
	ErrStoreClosed     = errors.New("streamswap: store is closed")
	ErrMigrationFailed = errors.New("streamswap: migration failed")
)

// Kind classifies an error into the taxonomy callers branch on.
type Kind string

const (
	KindUnknown       Kind = ""
	KindValidation    Kind = "validation"
	KindPayment       Kind = "payment"
	KindState         Kind = "state"
	KindArithmetic    Kind = "arithmetic"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("streamswap: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

func invalid(field string, sentinel error, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

var kinds = map[Kind][]error{
	KindNotFound: {
		ErrNotFound, ErrStreamNotFound, ErrPositionNotFound, ErrParamsNotFound,
	},
	KindArithmetic: {
		types.ErrOverflow, types.ErrUnderflow, types.ErrDivideByZero,
	},
	KindPayment: {
		payment.ErrNoFunds, payment.ErrMultipleDenoms, payment.ErrWrongDenom,
	},
	KindAuthorization: {
		ErrUnauthorized, ErrNoOperatorTarget,
	},
	KindValidation: {
		ErrInvalidName, ErrInvalidURL, ErrInDenomNotAccepted, ErrSameDenom,
		ErrZeroOutSupply, ErrStreamInvalidEndTime, ErrInvalidStartTime,
		ErrDurationTooShort, ErrStartsTooSoon, ErrZeroAmount, ErrInvalidOperator,
		ErrInvalidParamUpdate, factory.ErrInvalidParams, threshold.ErrZero,
		types.ErrInvalidAmount, types.ErrInvalidDec,
	},
	KindState: {
		ErrAlreadyExists, ErrWithdrawExceeds, ErrPositionExited,
		ErrStreamEnded, ErrStreamNotEnded, ErrStreamPaused, ErrStreamNotPaused,
		ErrStreamCancelled, ErrStreamNotCancelled, ErrStreamAlreadyPaused,
		ErrStreamIsCancelled, ErrStreamAlreadyFinalized, ErrStreamFinalized,
		ErrStreamNotStarted, ErrStreamNotActive,
		threshold.ErrNotReached, threshold.ErrReached,
	},
}

// kindOrder fixes the lookup order: a wrapped arithmetic failure inside a
// validation error is still reported as arithmetic.
var kindOrder = []Kind{
	KindNotFound, KindArithmetic, KindPayment, KindAuthorization, KindValidation, KindState,
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var mismatch *payment.MismatchError
	if errors.As(err, &mismatch) {
		return KindPayment
	}
	for _, k := range kindOrder {
		for _, sentinel := range kinds[k] {
			if errors.Is(err, sentinel) {
				return k
			}
		}
	}
	var transition *stream.TransitionError
	if errors.As(err, &transition) {
		return KindState
	}
	var verr ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	return KindUnknown
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation returns true if the request itself was malformed.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsPayment returns true if the attached funds were wrong.
func IsPayment(err error) bool { return KindOf(err) == KindPayment }

// IsState returns true if the operation is not allowed in the current
// stream or position state.
func IsState(err error) bool { return KindOf(err) == KindState }

// IsArithmetic returns true if a checked computation overflowed, underflowed
// or divided by zero.
func IsArithmetic(err error) bool { return KindOf(err) == KindArithmetic }

// IsAuthorization returns true if the sender lacked permission.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
