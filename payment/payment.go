// Package payment checks that the funds attached to a message match what an
// operation requires.
package payment

import (
	"errors"
	"fmt"

	"github.com/xraph/streamswap/types"
)

var (
	ErrNoFunds        = errors.New("payment: no funds sent")
	ErrMultipleDenoms = errors.New("payment: only one denom may be sent")
	ErrWrongDenom     = errors.New("payment: wrong denom sent")
)

// MismatchError is returned when attached funds differ from the expected set.
type MismatchError struct {
	Expected types.Coins
	Actual   types.Coins
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("payment: insufficient funds: expected %s, got %s", e.Expected, e.Actual)
}

// Check requires actual to equal expected exactly. Both sides are
// normalized first; surplus funds are a mismatch too.
func Check(expected, actual types.Coins) error {
	exp, err := types.NewCoins(expected...)
	if err != nil {
		return err
	}
	act, err := types.NewCoins(actual...)
	if err != nil {
		return err
	}
	if !exp.Equal(act) {
		return &MismatchError{Expected: exp, Actual: act}
	}
	return nil
}

// ExpectedCreation returns the funds a stream creator must attach: the
// creation fee plus the full output supply, merged when the denoms match.
func ExpectedCreation(fee types.Coin, outDenom string, outSupply types.Amount) (types.Coins, error) {
	return types.NewCoins(fee, types.NewCoin(outDenom, outSupply))
}

// MustPay requires funds to be a single non-zero coin of denom and returns
// its amount.
func MustPay(funds types.Coins, denom string) (types.Amount, error) {
	coins, err := types.NewCoins(funds...)
	if err != nil {
		return types.ZeroAmount, err
	}
	switch {
	case len(coins) == 0:
		return types.ZeroAmount, ErrNoFunds
	case len(coins) > 1:
		return types.ZeroAmount, ErrMultipleDenoms
	case coins[0].Denom != denom:
		return types.ZeroAmount, fmt.Errorf("%w: want %s, got %s", ErrWrongDenom, denom, coins[0].Denom)
	}
	return coins[0].Amount, nil
}
