package store

import "github.com/google/uuid"

// IDGenerator produces store instance IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 store IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs of stores
// created later sort later. Trace databases key runs by store ID.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StaticID always generates the same ID. Use it when the caller needs the
// store ID before the store exists, e.g. to tag loggers handed to
// dependencies.
type StaticID string

// Generate returns the ID.
func (id StaticID) Generate() string {
	return string(id)
}
