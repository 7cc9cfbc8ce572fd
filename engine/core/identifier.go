package core

import "github.com/google/uuid"

// NewIdentifier returns a fresh identifier for graphics, meshes and sessions.
func NewIdentifier() string {
	return uuid.NewString()
}

// IsIdentifier reports whether id was produced by NewIdentifier.
func IsIdentifier(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
