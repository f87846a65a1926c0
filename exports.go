package streamswap

import "github.com/xraph/streamswap/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Dec is re-exported from types package.
type Dec = types.Dec

// Coin is re-exported from types package.
type Coin = types.Coin

// Coins is re-exported from types package.
type Coins = types.Coins

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors
var (
	NewAmount   = types.NewAmount
	ParseAmount = types.ParseAmount
	ParseDec    = types.ParseDec
	NewCoin     = types.NewCoin
	NewCoins    = types.NewCoins
)
