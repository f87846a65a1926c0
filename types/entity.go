// Package types provides the value types shared across streamswap: checked
// whole-unit amounts, fixed-point decimals, coins and entity timestamps.
package types

import "time"

// Entity is the base type for persisted streamswap records.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity stamped at the given instant.
func NewEntity(at time.Time) Entity {
	at = at.UTC()
	return Entity{
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Touch moves UpdatedAt to the given instant.
func (e *Entity) Touch(at time.Time) {
	e.UpdatedAt = at.UTC()
}
