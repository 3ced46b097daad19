package tensor

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDyadicEdge_ShapeInvariant(t *testing.T) {
	_, err := NewDyadicEdge("x", Vector(1, 2), Vector(1, 2, 3))
	assert.True(t, IsShapeError(err))

	e, err := NewDyadicEdge("x", Vector(1, 2), Vector(3, 4))
	require.NoError(t, err)
	assert.Equal(t, "x", e.ID)
}

func TestOpponentProcess_OrderSensitive(t *testing.T) {
	a := Vector(1, 0.5, -1)
	b := Vector(0, 0.5, 1)

	ab, err := OpponentProcess(DyadicEdge{ID: "ab", PoleA: a, PoleB: b})
	require.NoError(t, err)
	ba, err := OpponentProcess(DyadicEdge{ID: "ba", PoleA: b, PoleB: a})
	require.NoError(t, err)

	assert.False(t, Equal(ab, ba, 1e-6))

	same, err := OpponentProcess(DyadicEdge{ID: "aa", PoleA: a, PoleB: a})
	require.NoError(t, err)
	assert.True(t, Equal(same, a, 1e-12), "equal poles return the pole")
}

func TestEntangle_Symmetric(t *testing.T) {
	a := Vector(1, 2, 3)
	b := Vector(-2, 0.5, 4)

	ab, err := Entangle(DyadicEdge{PoleA: a, PoleB: b})
	require.NoError(t, err)
	ba, err := Entangle(DyadicEdge{PoleA: b, PoleB: a})
	require.NoError(t, err)

	assert.True(t, Equal(ab, ba, 1e-12))
	assert.InDelta(t, 1.0, ab.Norm(), 1e-9)

	zero, err := Entangle(DyadicEdge{PoleA: Vector(0, 0), PoleB: Vector(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, zero.Data())
}

func TestExtractThreadsFromFace_Inverse(t *testing.T) {
	ti, tj, tk := Vector(1, 2), Vector(3, 4), Vector(5, 6)
	face, err := NewTriadicFace([3]int{1, 2, 3}, ti, tj, tk)
	require.NoError(t, err)
	assert.Equal(t, "1-2", face.EdgeIJ.ID)
	assert.Equal(t, "3-1", face.EdgeKI.ID)

	threads, err := ExtractThreadsFromFace(face)
	require.NoError(t, err)
	assert.True(t, Equal(threads[0], ti, 0))
	assert.True(t, Equal(threads[1], tj, 0))
	assert.True(t, Equal(threads[2], tk, 0))
}

func TestTriadicIntegrate_ShapeIndependentOfContent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for _, d := range []int{1, 4, 9} {
		face := TriadicFace{
			Threads: [3]int{1, 2, 3},
			EdgeIJ:  DyadicEdge{PoleA: Random(rng, 3, d), PoleB: Random(rng, 3, d)},
			EdgeJK:  DyadicEdge{PoleA: Random(rng, 3, d), PoleB: Random(rng, 3, d)},
			EdgeKI:  DyadicEdge{PoleA: Random(rng, 3, d), PoleB: Random(rng, 3, d)},
		}
		threads, err := ExtractThreadsFromFace(face)
		require.NoError(t, err)
		out, err := TriadicIntegrate(threads[0], threads[1], threads[2])
		require.NoError(t, err)
		assert.Equal(t, []int{3 * d}, out.Shape())
	}
}

func TestTriadicIntegrate_ShapeMismatch(t *testing.T) {
	_, err := TriadicIntegrate(Vector(1), Vector(1, 2), Vector(1))
	assert.True(t, IsShapeError(err))
}

func TestTetradicBundle_RoundTrip(t *testing.T) {
	threads := [4]Tensor{Vector(1, 0), Vector(0, 1), Vector(-1, 0), Vector(0, -1)}
	b, err := NewTetradicBundle(threads)
	require.NoError(t, err)

	assert.Len(t, b.Edges, 6)
	assert.Len(t, b.Faces, 4)
	assert.Equal(t, "2-4", b.Edges[4].ID)
	assert.Equal(t, [3]int{1, 3, 4}, b.Faces[2].Threads)

	vertices, err := ExtractVerticesFromBundle(b)
	require.NoError(t, err)
	for i := range threads {
		assert.True(t, Equal(vertices[i], threads[i], 1e-12), "vertex %d", i+1)
	}

	out, err := TetradicIntegrate(vertices)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, out.Shape())
}

func TestTetradicBundle_ShapeMismatch(t *testing.T) {
	_, err := NewTetradicBundle([4]Tensor{Vector(1), Vector(1), Vector(1, 2), Vector(1)})
	assert.True(t, IsShapeError(err))
}
