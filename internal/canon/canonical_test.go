package canon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative", -7, "-7"},
		{"float", 0.25, "0.25"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty array", []int{}, "[]"},
		{"empty object", map[string]int{}, "{}"},
		{"nested", map[string]any{"b": []any{1, "x"}, "a": map[string]any{"z": 1, "y": 2}}, `{"a":{"y":2,"z":1},"b":[1,"x"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_StructTags(t *testing.T) {
	type row struct {
		Kind string  `json:"kind"`
		Seq  int64   `json:"seq"`
		Conf float64 `json:"confidence,omitempty"`
	}
	got, err := Marshal(row{Kind: "step_advance", Seq: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"step_advance","seq":3}`, string(got))
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	got, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshal_Escapes(t *testing.T) {
	got, err := Marshal("q\"b\\n\n\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"q\\\"b\\\\n\\n\\u0001 \"", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	composed, err := Marshal("\u00e9")
	require.NoError(t, err)
	decomposed, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshal_RejectsNaN(t *testing.T) {
	_, err := Marshal(math.NaN())
	assert.Error(t, err)
}

func TestCompareKeys_UTF16Order(t *testing.T) {
	// U+FF61 sorts after a surrogate pair in UTF-16 but before it in UTF-8.
	emoji := "\U0001F600"
	half := "｡"
	assert.Less(t, CompareKeys(emoji, half), 0)
	assert.Greater(t, CompareKeys(half, emoji), 0)
	assert.Less(t, CompareKeys("a", "ab"), 0)
	assert.Equal(t, 0, CompareKeys("k", "k"))
}

func TestHash(t *testing.T) {
	a, err := Hash(DomainEvent, map[string]any{"x": 1, "y": "z"})
	require.NoError(t, err)
	b, err := Hash(DomainEvent, map[string]any{"y": "z", "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c := MustHash(DomainMemory, map[string]any{"x": 1, "y": "z"})
	assert.NotEqual(t, a, c)

	assert.Panics(t, func() { MustHash(DomainEvent, math.Inf(1)) })
}
