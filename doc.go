// Package streamswap provides a continuous token distribution engine for Go
// applications.
//
// A seller commits a fixed supply of an output token. The supply is sold
// continuously between a start and an end time to buyers who deposit an
// input token. At every instant each buyer's claim is proportional to their
// share of the unspent input, so the price is discovered by the flow of
// deposits and withdrawals rather than by an order book.
//
// streamswap is designed as a library, not a service. It never holds
// balances itself: every payout, refund and fee is returned as a
// transfer.Transfer for the host application to settle. It provides:
//
//   - Exact fixed-point accounting on 128-bit amounts and 18-digit decimals
//   - Path-independent distribution that does not depend on sync frequency
//   - A stream lifecycle with pause, resume, cancel and finalize
//   - Optional minimum raise thresholds with full refunds when missed
//   - Pluggable stores (memory, PostgreSQL, SQLite, MongoDB)
//   - Lifecycle hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/streamswap"
//	    "github.com/xraph/streamswap/store/memory"
//	)
//
//	engine := streamswap.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Streams
//
// A stream is created with the output supply and the creation fee attached:
//
//	res, err := engine.CreateStream(ctx, streamswap.CreateStreamMsg{
//	    Sender:    "seller",
//	    Funds:     funds,
//	    Name:      "Genesis sale",
//	    InDenom:   "uusd",
//	    OutDenom:  "utoken",
//	    OutSupply: streamswap.NewAmount(1_000_000),
//	    StartTime: start,
//	    EndTime:   end,
//	})
//
// Buyers subscribe with input, may withdraw what is still unspent, and exit
// with their purchased output once the stream ended:
//
//	engine.Subscribe(ctx, streamswap.SubscribeMsg{StreamID: id, Sender: "buyer", Funds: in})
//	engine.ExitStream(ctx, streamswap.PositionMsg{StreamID: id, Sender: "buyer"})
//
// The treasury collects the input raised, net of the exit fee, with
// FinalizeStream. Anyone may call it after the end.
//
// # Errors
//
// Every error falls into one kind (validation, payment, state, arithmetic
// or authorization). KindOf and the Is helpers classify wrapped errors.
// A failed operation never changes state.
package streamswap
