package types

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// AmountBits is the width of an Amount. Products of two amounts always fit
// in the 256-bit working integer, so ratio math never loses precision.
const AmountBits = 128

// Amount is a non-negative whole-unit token quantity in [0, 2^128).
// Every operation is checked: results outside the range return
// ErrOverflow or ErrUnderflow instead of wrapping.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for UnmarshalText/Scan.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the zero Amount.
var ZeroAmount Amount

// NewAmount returns an Amount holding n.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return ZeroAmount, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return ZeroAmount, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if v.BitLen() > AmountBits {
		return ZeroAmount, fmt.Errorf("%w: %q exceeds %d bits", ErrOverflow, s, AmountBits)
	}
	return Amount{v: *v}, nil
}

// MustAmount is like ParseAmount but panics on error. Use for constants.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBig converts b, rejecting negative values and values above the
// Amount range.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b.Sign() < 0 {
		return ZeroAmount, ErrUnderflow
	}
	v, overflow := uint256.FromBig(b)
	if overflow || v.BitLen() > AmountBits {
		return ZeroAmount, ErrOverflow
	}
	return Amount{v: *v}, nil
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// LT reports whether a < b.
func (a Amount) LT(b Amount) bool { return a.v.Lt(&b.v) }

// GT reports whether a > b.
func (a Amount) GT(b Amount) bool { return a.v.Gt(&b.v) }

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow || out.v.BitLen() > AmountBits {
		return ZeroAmount, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return out, nil
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return ZeroAmount, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return out, nil
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.MulOverflow(&a.v, &b.v); overflow || out.v.BitLen() > AmountBits {
		return ZeroAmount, fmt.Errorf("%w: %s * %s", ErrOverflow, a, b)
	}
	return out, nil
}

// MulRatioFloor returns floor(a * num / den).
func (a Amount) MulRatioFloor(num, den Amount) (Amount, error) {
	return a.mulRatio(num, den, false)
}

// MulRatioCeil returns ceil(a * num / den).
func (a Amount) MulRatioCeil(num, den Amount) (Amount, error) {
	return a.mulRatio(num, den, true)
}

func (a Amount) mulRatio(num, den Amount, roundUp bool) (Amount, error) {
	if den.IsZero() {
		return ZeroAmount, ErrDivideByZero
	}
	// Both factors are below 2^128 so the product cannot leave 256 bits.
	var prod, quo, rem uint256.Int
	prod.Mul(&a.v, &num.v)
	quo.DivMod(&prod, &den.v, &rem)
	if roundUp && !rem.IsZero() {
		quo.AddUint64(&quo, 1)
	}
	if quo.BitLen() > AmountBits {
		return ZeroAmount, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, a, num, den)
	}
	return Amount{v: quo}, nil
}

// MinAmount returns the smaller of a and b.
func MinAmount(a, b Amount) Amount {
	if a.LT(b) {
		return a
	}
	return b
}

// BigInt returns a as a new big.Int.
func (a Amount) BigInt() *big.Int { return a.v.ToBig() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as decimal text so the
// full 128-bit range survives every backend.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ZeroAmount
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative value %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
