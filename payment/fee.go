package payment

import "github.com/xraph/streamswap/types"

// FeeCalculator splits the input raised by a stream into the treasury's
// revenue and the protocol's exit fee.
type FeeCalculator interface {
	Split(spent types.Amount) (revenue, fee types.Amount, err error)
}

// PercentFee charges floor(spent * Rate).
type PercentFee struct {
	Rate types.Dec
}

// Split implements FeeCalculator.
func (f PercentFee) Split(spent types.Amount) (revenue, fee types.Amount, err error) {
	fee, err = f.Rate.MulAmountFloor(spent)
	if err != nil {
		return types.ZeroAmount, types.ZeroAmount, err
	}
	if fee.GT(spent) {
		fee = spent
	}
	revenue, err = spent.Sub(fee)
	if err != nil {
		return types.ZeroAmount, types.ZeroAmount, err
	}
	return revenue, fee, nil
}
