package dryrun

import (
	"hash/fnv"
	"math/rand"
)

const (
	// SubsystemOutputLength draws candidate output lengths.
	// Uses the master seed directly.
	SubsystemOutputLength = "output_length"

	// SubsystemTokenIDs draws the synthetic token ids.
	SubsystemTokenIDs = "token_ids"
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem,
// so adding draws to one subsystem never shifts another's sequence.
//
// Derivation formula:
//   - For SubsystemOutputLength: uses seed directly
//   - For all other subsystems: seed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	derivedSeed := p.seed
	if name != SubsystemOutputLength {
		derivedSeed = p.seed ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
