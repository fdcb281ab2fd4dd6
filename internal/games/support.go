package games

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// ===== ID Generator =====

// IDGenerator issues session ids.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns an IDGenerator that produces v7 UUIDs where available, falling back to v4.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ===== Randomness =====

// RandSource builds the generator a new trash-sort session draws items from.
type RandSource func() *rand.Rand

func newTimeSeededRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
