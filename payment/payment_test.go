package payment

import (
	"errors"
	"testing"

	"github.com/xraph/streamswap/types"
)

func coins(cs ...types.Coin) types.Coins { return types.Coins(cs) }

func coin(denom string, n uint64) types.Coin { return types.NewCoin(denom, types.NewAmount(n)) }

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		expected types.Coins
		actual   types.Coins
		ok       bool
	}{
		{"exact", coins(coin("fee", 10), coin("out", 1000)), coins(coin("out", 1000), coin("fee", 10)), true},
		{"missing fee", coins(coin("fee", 10), coin("out", 1000)), coins(coin("out", 1000)), false},
		{"short", coins(coin("fee", 10), coin("out", 1000)), coins(coin("fee", 10), coin("out", 999)), false},
		{"surplus", coins(coin("out", 1000)), coins(coin("out", 1000), coin("x", 1)), false},
		{"split input merges", coins(coin("out", 1010)), coins(coin("out", 1000), coin("out", 10)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.expected, tt.actual)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var mismatch *MismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected MismatchError, got %v", err)
			}
		})
	}
}

func TestExpectedCreationMergesSameDenom(t *testing.T) {
	got, err := ExpectedCreation(coin("out", 10), "out", types.NewAmount(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "1010out" {
		t.Errorf("got %s", got)
	}

	got, err = ExpectedCreation(coin("fee", 10), "out", types.NewAmount(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "10fee,1000out" {
		t.Errorf("got %s", got)
	}
}

func TestMustPay(t *testing.T) {
	amt, err := MustPay(coins(coin("in", 5)), "in")
	if err != nil || amt.String() != "5" {
		t.Fatalf("got %s, %v", amt, err)
	}

	if _, err := MustPay(nil, "in"); !errors.Is(err, ErrNoFunds) {
		t.Errorf("no funds: got %v", err)
	}
	if _, err := MustPay(coins(coin("in", 0)), "in"); !errors.Is(err, ErrNoFunds) {
		t.Errorf("zero funds: got %v", err)
	}
	if _, err := MustPay(coins(coin("in", 1), coin("x", 1)), "in"); !errors.Is(err, ErrMultipleDenoms) {
		t.Errorf("two denoms: got %v", err)
	}
	if _, err := MustPay(coins(coin("x", 1)), "in"); !errors.Is(err, ErrWrongDenom) {
		t.Errorf("wrong denom: got %v", err)
	}
}

func TestPercentFee(t *testing.T) {
	tests := []struct {
		rate    string
		spent   uint64
		revenue string
		fee     string
	}{
		{"0.01", 1000, "990", "10"},
		{"0.01", 99, "99", "0"},
		{"0", 500, "500", "0"},
		{"0.333", 10, "7", "3"},
	}

	for _, tt := range tests {
		revenue, fee, err := PercentFee{Rate: types.MustDec(tt.rate)}.Split(types.NewAmount(tt.spent))
		if err != nil {
			t.Fatalf("%s of %d: %v", tt.rate, tt.spent, err)
		}
		if revenue.String() != tt.revenue || fee.String() != tt.fee {
			t.Errorf("%s of %d: got %s/%s, want %s/%s", tt.rate, tt.spent, revenue, fee, tt.revenue, tt.fee)
		}
	}
}
