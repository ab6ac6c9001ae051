package types

import "time"

// Entity carries creation and modification timestamps. Timestamps come
// from the engine clock rather than time.Now so tests stay deterministic.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both timestamps with now.
func NewEntity(now time.Time) Entity {
	now = now.UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification at now.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}
