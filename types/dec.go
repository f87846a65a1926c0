package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// DecPrecision is the number of fractional digits carried by a Dec.
const DecPrecision = 18

// decBits bounds the scaled integer behind a Dec (value * 10^18).
const decBits = 256

// Dec is a non-negative fixed-point decimal with exactly DecPrecision
// fractional digits. Every operation truncates toward zero at that
// precision; the discarded digits are the caller's to carry if they matter.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for UnmarshalText/Scan.
type Dec struct {
	d decimal.Decimal
}

// ZeroDec is the zero Dec.
var ZeroDec = Dec{d: decimal.Zero}

// OneDec is the Dec value 1.
var OneDec = Dec{d: decimal.NewFromInt(1)}

// DecFromAmount converts a whole-unit amount.
func DecFromAmount(a Amount) Dec {
	return Dec{d: decimal.NewFromBigInt(a.BigInt(), 0)}
}

// DecFromRatio returns num / den truncated to DecPrecision digits.
func DecFromRatio(num, den Amount) (Dec, error) {
	if den.IsZero() {
		return ZeroDec, ErrDivideByZero
	}
	return DecFromAmount(num).Quo(DecFromAmount(den))
}

// DecFromInt64Ratio returns num / den for non-negative int64 operands,
// typically nanosecond durations.
func DecFromInt64Ratio(num, den int64) (Dec, error) {
	if den == 0 {
		return ZeroDec, ErrDivideByZero
	}
	if num < 0 || den < 0 {
		return ZeroDec, ErrUnderflow
	}
	q, _ := decimal.NewFromInt(num).QuoRem(decimal.NewFromInt(den), DecPrecision)
	return Dec{d: q}, nil
}

// ParseDec parses a decimal string such as "0.015".
func ParseDec(s string) (Dec, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroDec, fmt.Errorf("%w: %q: %v", ErrInvalidDec, s, err)
	}
	if d.Sign() < 0 {
		return ZeroDec, fmt.Errorf("%w: %q is negative", ErrInvalidDec, s)
	}
	return checked(d.Truncate(DecPrecision))
}

// MustDec is like ParseDec but panics on error.
func MustDec(s string) Dec {
	d, err := ParseDec(s)
	if err != nil {
		panic(err)
	}
	return d
}

func checked(d decimal.Decimal) (Dec, error) {
	if d.Shift(DecPrecision).BigInt().BitLen() > decBits {
		return ZeroDec, fmt.Errorf("%w: decimal %s", ErrOverflow, d.String())
	}
	return Dec{d: d}, nil
}

// IsZero reports whether x is zero.
func (x Dec) IsZero() bool { return x.d.IsZero() }

// Cmp compares x and y and returns -1, 0 or +1.
func (x Dec) Cmp(y Dec) int { return x.d.Cmp(y.d) }

// Equal reports whether x == y.
func (x Dec) Equal(y Dec) bool { return x.d.Equal(y.d) }

// Add returns x + y.
func (x Dec) Add(y Dec) (Dec, error) {
	return checked(x.d.Add(y.d))
}

// Sub returns x - y. A negative result is ErrUnderflow.
func (x Dec) Sub(y Dec) (Dec, error) {
	r := x.d.Sub(y.d)
	if r.Sign() < 0 {
		return ZeroDec, fmt.Errorf("%w: %s - %s", ErrUnderflow, x, y)
	}
	return checked(r)
}

// Mul returns x * y truncated to DecPrecision digits.
func (x Dec) Mul(y Dec) (Dec, error) {
	return checked(x.d.Mul(y.d).Truncate(DecPrecision))
}

// Quo returns x / y truncated to DecPrecision digits.
func (x Dec) Quo(y Dec) (Dec, error) {
	if y.IsZero() {
		return ZeroDec, ErrDivideByZero
	}
	q, _ := x.d.QuoRem(y.d, DecPrecision)
	return checked(q)
}

// MulAmount returns x * a.
func (x Dec) MulAmount(a Amount) (Dec, error) {
	return x.Mul(DecFromAmount(a))
}

// MulAmountFloor returns floor(a * x) as a whole-unit amount.
func (x Dec) MulAmountFloor(a Amount) (Amount, error) {
	p, err := x.MulAmount(a)
	if err != nil {
		return ZeroAmount, err
	}
	return p.Floor()
}

// Floor returns the whole-unit part of x.
func (x Dec) Floor() (Amount, error) {
	return AmountFromBig(x.d.Floor().BigInt())
}

// Frac returns the fractional part of x, in [0, 1).
func (x Dec) Frac() Dec {
	return Dec{d: x.d.Sub(x.d.Floor())}
}

// Split returns the whole-unit part and the fractional remainder of x.
func (x Dec) Split() (Amount, Dec, error) {
	whole, err := x.Floor()
	if err != nil {
		return ZeroAmount, ZeroDec, err
	}
	return whole, x.Frac(), nil
}

// Decimal exposes the underlying shopspring value for reporting.
func (x Dec) Decimal() decimal.Decimal { return x.d }

// String returns the shortest exact representation of x.
func (x Dec) String() string { return x.d.String() }

// MarshalText implements encoding.TextMarshaler.
func (x Dec) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (x *Dec) UnmarshalText(data []byte) error {
	parsed, err := ParseDec(string(data))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}

// Value implements driver.Valuer.
func (x Dec) Value() (driver.Value, error) {
	return x.String(), nil
}

// Scan implements sql.Scanner.
func (x *Dec) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*x = ZeroDec
		return nil
	case string:
		return x.UnmarshalText([]byte(v))
	case []byte:
		return x.UnmarshalText(v)
	default:
		return fmt.Errorf("types: cannot scan %T into Dec", src)
	}
}
