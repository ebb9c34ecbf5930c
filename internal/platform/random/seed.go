// Package random provides seeded, injectable randomness for seat assignment.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewCoinFlip returns a goroutine-safe fair coin driven by a PCG seeded with seed.
// The same seed always yields the same sequence.
func NewCoinFlip(seed uint64) func() bool {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.IntN(2) == 0
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewRoomCode returns an n-character code drawn from crypto/rand over an
// alphabet without look-alike characters.
func NewRoomCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("room code length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		return "", fmt.Errorf("read room code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
