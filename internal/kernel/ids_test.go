package kernel

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}

func TestSequentialGenerator(t *testing.T) {
	gen := NewSequentialGenerator("proc")
	assert.Equal(t, "proc-1", gen.Generate())
	assert.Equal(t, "proc-2", gen.Generate())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestLatencyWindow(t *testing.T) {
	w := newLatencyWindow(2)
	assert.Equal(t, 0.0, w.mean())
	w.add(4)
	assert.Equal(t, 4.0, w.mean())
	w.add(6)
	w.add(10)
	assert.Equal(t, 8.0, w.mean())
}
