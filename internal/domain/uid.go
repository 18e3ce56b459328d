package domain

import (
	"math/rand"

	"github.com/google/uuid"
)

// UIDSource produces version-4 UUIDs from a seeded pseudo-random stream.
// The simulation requires reproducible identifiers, so the system UUID
// generator is never used; two sources created with the same seed yield the
// same sequence.
type UIDSource struct {
	r *rand.Rand
}

// NewUIDSource creates a deterministic UID source for the given seed.
func NewUIDSource(seed int64) *UIDSource {
	return &UIDSource{r: rand.New(rand.NewSource(seed))}
}

// Next returns the next UUID in the stream.
func (s *UIDSource) Next() uuid.UUID {
	id, err := uuid.NewRandomFromReader(s.r)
	if err != nil {
		// math/rand readers never fail
		panic(err)
	}
	return id
}
