// Package seed derives deterministic random sources for mine generation.
//
// Every random decision a level makes is keyed by (game seed, day, level,
// tile), so a participant that recomputes the same key reaches the same
// result as the host without the state being transmitted.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/blake2b"
)

// Salts keep independent draws for the same level from sharing a stream.
const (
	SaltLayout   int64 = 1
	SaltContent  int64 = 2
	SaltLadder   int64 = 3
	SaltLoot     int64 = 4
	SaltTemplate int64 = 5
	SaltMonster  int64 = 6
)

// Provider derives seeds from the game seed.
type Provider struct {
	GameSeed int64
}

// NewProvider returns a provider for the given game seed.
func NewProvider(gameSeed int64) Provider {
	return Provider{GameSeed: gameSeed}
}

// New generates a fresh game seed using crypto/rand.
func New() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Mix folds the game seed and parts into a single seed.
func (p Provider) Mix(parts ...int64) int64 {
	buf := make([]byte, 8*(len(parts)+1))
	binary.LittleEndian.PutUint64(buf, uint64(p.GameSeed))
	for i, part := range parts {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], uint64(part))
	}
	sum := blake2b.Sum256(buf)
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

// Day returns the seed for a calendar day.
func (p Provider) Day(day int) int64 {
	return p.Mix(int64(day))
}

// Level returns the seed for a level on a day, with an optional salt.
func (p Provider) Level(day, level int, salt int64) int64 {
	return p.Mix(int64(day), int64(level), salt)
}

// Tile returns the seed for one tile of a level on a day.
func (p Provider) Tile(day, level, x, y int, salt int64) int64 {
	return p.Mix(int64(day), int64(level), int64(x), int64(y), salt)
}

// LevelRand returns a generator seeded for a level on a day.
func (p Provider) LevelRand(day, level int, salt int64) *rand.Rand {
	return Rand(p.Level(day, level, salt))
}

// TileRand returns a generator seeded for a single tile.
func (p Provider) TileRand(day, level, x, y int, salt int64) *rand.Rand {
	return Rand(p.Tile(day, level, x, y, salt))
}

// Rand wraps a seed in a math/rand generator.
func Rand(s int64) *rand.Rand {
	return rand.New(rand.NewSource(s))
}
