package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewSizing(t *testing.T) {
	f := New(1000, 0.01)
	assert.Greater(t, f.Bits(), uint64(0))
	assert.GreaterOrEqual(t, f.Hashes(), uint64(1))
}

func TestNewDegenerateArguments(t *testing.T) {
	// Zero items and out-of-range fp fall back to sane defaults.
	f := New(0, 2.0)
	assert.GreaterOrEqual(t, f.Hashes(), uint64(1))
	f.AddString("+221781234567")
	assert.True(t, f.TestString("+221781234567"))
}

func TestAddedKeysAlwaysFound(t *testing.T) {
	f := New(100, 0.01)
	phones := []string{"+221781234567", "+33612345678", "+12025550123"}
	for _, p := range phones {
		f.AddString(p)
	}
	for _, p := range phones {
		assert.True(t, f.TestString(p), "added phone %s must test positive", p)
	}
}

func TestUnknownKeysMostlyRejected(t *testing.T) {
	f := New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		f.AddString(fmt.Sprintf("+221%09d", i))
	}

	falsePositives := 0
	probes := 10000
	for i := 0; i < probes; i++ {
		if f.TestString(fmt.Sprintf("+33%09d", i)) {
			falsePositives++
		}
	}
	// Target rate is 1%; allow generous slack to keep the test stable.
	assert.Less(t, falsePositives, probes/20)
}

func TestProperty_NoFalseNegatives(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.String(), 1, 200).Draw(t, "keys")
		f := New(uint(len(keys)), 0.01)

		for _, k := range keys {
			f.AddString(k)
		}
		for _, k := range keys {
			if !f.TestString(k) {
				t.Fatalf("false negative for added key %q", k)
			}
		}
	})
}
