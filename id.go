package streamswap

import "github.com/xraph/streamswap/id"

// ID is the identifier type for positions and transfers. Streams use
// sequential integer ids.
type ID = id.ID
