package types

import (
	"sort"
	"strings"
)

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount Amount `json:"amount"`
}

// NewCoin returns a Coin.
func NewCoin(denom string, amount Amount) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// String formats the coin as "<amount><denom>".
func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// Coins is a normalized coin set: sorted by denom, one entry per denom and
// no zero amounts.
type Coins []Coin

// NewCoins normalizes cs, merging duplicate denoms with checked addition.
func NewCoins(cs ...Coin) (Coins, error) {
	byDenom := make(map[string]Amount, len(cs))
	for _, c := range cs {
		sum, err := byDenom[c.Denom].Add(c.Amount)
		if err != nil {
			return nil, err
		}
		byDenom[c.Denom] = sum
	}

	out := make(Coins, 0, len(byDenom))
	for denom, amt := range byDenom {
		if amt.IsZero() {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

// AmountOf returns the amount held for denom.
func (cs Coins) AmountOf(denom string) Amount {
	for _, c := range cs {
		if c.Denom == denom {
			return c.Amount
		}
	}
	return ZeroAmount
}

// Equal reports whether two normalized sets hold the same coins.
func (cs Coins) Equal(other Coins) bool {
	if len(cs) != len(other) {
		return false
	}
	for i := range cs {
		if cs[i].Denom != other[i].Denom || !cs[i].Amount.Equal(other[i].Amount) {
			return false
		}
	}
	return true
}

// String formats the set as a comma separated list.
func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
