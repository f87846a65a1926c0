// Package id holds the TypeID identifiers of positions and transfers.
//
// Streams are numbered by the factory counter. Positions and transfers get
// a K-sortable "prefix_suffix" TypeID so they can be created without a
// round trip to the store.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	positionPrefix = "pos"
	transferPrefix = "xfer"
)

// ID is a position or transfer identifier. The zero value is empty and
// encodes as "".
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver.
type ID struct {
	tid typeid.TypeID
	set bool
}

// PositionID identifies a buyer position ("pos_...").
type PositionID = ID

// TransferID identifies a value movement ("xfer_...").
type TransferID = ID

// NewPositionID returns a fresh position id.
func NewPositionID() PositionID { return generate(positionPrefix) }

// NewTransferID returns a fresh transfer id.
func NewTransferID() TransferID { return generate(transferPrefix) }

// ParsePositionID parses s and rejects anything but a position id.
func ParsePositionID(s string) (PositionID, error) { return parse(s, positionPrefix) }

// ParseTransferID parses s and rejects anything but a transfer id.
func ParseTransferID(s string) (TransferID, error) { return parse(s, transferPrefix) }

func generate(prefix string) ID {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, set: true}
}

// parse decodes s. An empty want accepts either record prefix.
func parse(s, want string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("id: empty id")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("id: parse %q: %w", s, err)
	}
	switch got := tid.Prefix(); {
	case want != "" && got != want:
		return ID{}, fmt.Errorf("id: %q is not a %s id", s, want)
	case got != positionPrefix && got != transferPrefix:
		return ID{}, fmt.Errorf("id: unknown prefix %q", got)
	}
	return ID{tid: tid, set: true}, nil
}

// IsZero reports whether i was never assigned.
func (i ID) IsZero() bool { return !i.set }

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields
// the zero ID.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = ID{}
		return nil
	}
	parsed, err := parse(string(data), "")
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
