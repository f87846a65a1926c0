package streamswap

import (
	"strings"
	"time"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/threshold"
	"github.com/xraph/streamswap/types"
)

const (
	minNameLength = 2
	maxNameLength = 64
	minURLLength  = 12
	maxURLLength  = 255

	nameSymbols = `<>$!&?#()*+'-./" `
	urlSymbols  = `-_:/?#@!$&()*+,;=.~[]'%`
)

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func onlyChars(s, symbols string) bool {
	for _, r := range s {
		if !isASCIIAlnum(r) && !strings.ContainsRune(symbols, r) {
			return false
		}
	}
	return true
}

func validateName(name string) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return invalid("name", ErrInvalidName, "length must be between %d and %d", minNameLength, maxNameLength)
	}
	if !onlyChars(name, nameSymbols) {
		return invalid("name", ErrInvalidName, "contains an unsupported character")
	}
	return nil
}

func validateURL(url string) error {
	if url == "" {
		return nil
	}
	if len(url) < minURLLength || len(url) > maxURLLength {
		return invalid("url", ErrInvalidURL, "length must be between %d and %d", minURLLength, maxURLLength)
	}
	if !onlyChars(url, urlSymbols) {
		return invalid("url", ErrInvalidURL, "contains an unsupported character")
	}
	return nil
}

func validateDenoms(p factory.Params, inDenom, outDenom string, outSupply types.Amount, th *types.Amount) error {
	if inDenom != p.AcceptedInDenom {
		return invalid("in_denom", ErrInDenomNotAccepted, "%q is not %q", inDenom, p.AcceptedInDenom)
	}
	if outDenom == "" {
		return invalid("out_denom", ErrSameDenom, "out denom is required")
	}
	if inDenom == outDenom {
		return invalid("out_denom", ErrSameDenom, "%q is also the in denom", outDenom)
	}
	if outSupply.IsZero() {
		return invalid("out_supply", ErrZeroOutSupply, "must be positive")
	}
	if err := threshold.Validate(th); err != nil {
		return invalid("threshold", err, "must be positive when set")
	}
	return nil
}

func validateSchedule(p factory.Params, start, end, now time.Time) error {
	if !end.After(start) {
		return invalid("end_time", ErrStreamInvalidEndTime, "%s is not after %s", end, start)
	}
	if start.Before(now) {
		return invalid("start_time", ErrInvalidStartTime, "%s is before %s", start, now)
	}
	if end.Sub(start) < p.MinStreamDuration {
		return invalid("end_time", ErrDurationTooShort, "duration must be at least %s", p.MinStreamDuration)
	}
	if start.Sub(now) < p.MinDurationUntilStart {
		return invalid("start_time", ErrStartsTooSoon, "must start at least %s from now", p.MinDurationUntilStart)
	}
	return nil
}
