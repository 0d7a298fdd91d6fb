// Package bloom implements a plain bloom filter used as a negative
// cache in front of the user directory: a miss means the key is
// definitely absent, a hit means the store must be consulted.
package bloom

import (
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/twmb/murmur3"
)

// Filter is a thread-safe bloom filter over byte keys.
type Filter struct {
	mu   sync.RWMutex
	bits *bitset.BitSet
	m    uint64 // number of bits
	k    uint64 // number of hash functions
}

// New sizes a filter for the expected number of items n at the target
// false-positive rate fp.
func New(n uint, fp float64) *Filter {
	if n == 0 {
		n = 1
	}
	if fp <= 0 || fp >= 1 {
		fp = 0.01
	}

	m := uint64(math.Ceil(-float64(n) * math.Log(fp) / (math.Ln2 * math.Ln2)))
	k := uint64(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}

	return &Filter{
		bits: bitset.New(uint(m)),
		m:    m,
		k:    k,
	}
}

// Add inserts key into the filter.
func (f *Filter) Add(key []byte) {
	h1, h2 := murmur3.Sum128(key)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint64(0); i < f.k; i++ {
		f.bits.Set(uint((h1 + i*h2) % f.m))
	}
}

// AddString inserts a string key.
func (f *Filter) AddString(key string) {
	f.Add([]byte(key))
}

// Test reports whether key may be in the filter. False is definitive.
func (f *Filter) Test(key []byte) bool {
	h1, h2 := murmur3.Sum128(key)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := uint64(0); i < f.k; i++ {
		if !f.bits.Test(uint((h1 + i*h2) % f.m)) {
			return false
		}
	}
	return true
}

// TestString tests a string key.
func (f *Filter) TestString(key string) bool {
	return f.Test([]byte(key))
}

// Bits returns the filter size in bits.
func (f *Filter) Bits() uint64 { return f.m }

// Hashes returns the number of hash functions.
func (f *Filter) Hashes() uint64 { return f.k }
