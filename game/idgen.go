package game

import "github.com/google/uuid"

// IDGenerator produces identities for games, deals, and players. It exists
// as an interface, rather than calling uuid.New directly, so tests can
// supply deterministic sequences.
type IDGenerator interface {
	NewID() uuid.UUID
}

// UUIDGenerator is the production IDGenerator, generating random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() uuid.UUID { return uuid.New() }

// SequenceGenerator returns UUIDs from a fixed, pre-supplied list, then
// panics if exhausted. Useful for tests that need to assert on specific
// deal or game identities.
type SequenceGenerator struct {
	ids []uuid.UUID
	at  int
}

// NewSequenceGenerator builds a generator that yields ids in order.
func NewSequenceGenerator(ids ...uuid.UUID) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

func (s *SequenceGenerator) NewID() uuid.UUID {
	if s.at >= len(s.ids) {
		panic("game: sequence generator exhausted")
	}
	id := s.ids[s.at]
	s.at++
	return id
}
