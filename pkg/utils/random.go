package utils

import (
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
)

// GenerateID returns a new viewer session ID.
func GenerateID() string {
	return uuid.NewString()
}

// StringToSeed turns a human-friendly seed ("rush-hour") into an int64.
func StringToSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// DeriveSeed splits a master seed into independent streams so that adding
// draws to one subsystem does not shift the others.
func DeriveSeed(master int64, salt string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(master >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(salt))
	return int64(h.Sum64())
}

// NewRand returns a private generator; the global math/rand source is never
// used by the simulation.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
