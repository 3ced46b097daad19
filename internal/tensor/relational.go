package tensor

import "fmt"

// DyadicEdge is an ordered pair of equal-shaped tensors.
type DyadicEdge struct {
	ID    string
	PoleA Tensor
	PoleB Tensor
}

// NewDyadicEdge validates that both poles share a shape.
func NewDyadicEdge(id string, a, b Tensor) (DyadicEdge, error) {
	if a.IsEmpty() || !SameShape(a, b) {
		return DyadicEdge{}, mismatch("dyadic_edge "+id, a, b, "poles must share a shape")
	}
	return DyadicEdge{ID: id, PoleA: a, PoleB: b}, nil
}

// OpponentProcess reduces an edge by letting the contrast between its poles
// gate their midpoint: mid * (1 + tanh(a - b)) where mid = (a + b) / 2.
// Swapping the poles changes the result; equal poles return the pole.
func OpponentProcess(e DyadicEdge) (Tensor, error) {
	diff, err := Sub(e.PoleA, e.PoleB)
	if err != nil {
		return Tensor{}, fmt.Errorf("opponent process %s: %w", e.ID, err)
	}
	sum, err := Add(e.PoleA, e.PoleB)
	if err != nil {
		return Tensor{}, fmt.Errorf("opponent process %s: %w", e.ID, err)
	}
	mid := sum.Scale(0.5)
	gate := diff.Tanh().mapped(func(v float64) float64 { return 1 + v })
	return Mul(mid, gate)
}

// Entangle couples the poles symmetrically: the elementwise product,
// scaled to unit L2 norm.
func Entangle(e DyadicEdge) (Tensor, error) {
	prod, err := Mul(e.PoleA, e.PoleB)
	if err != nil {
		return Tensor{}, fmt.Errorf("entangle %s: %w", e.ID, err)
	}
	return prod.Normalize(), nil
}

// TriadicFace closes a triangle over threads i, j, k with the edges
// i->j, j->k and k->i.
type TriadicFace struct {
	Threads [3]int
	EdgeIJ  DyadicEdge
	EdgeJK  DyadicEdge
	EdgeKI  DyadicEdge
}

func edgeID(a, b int) string {
	return fmt.Sprintf("%d-%d", a, b)
}

// NewTriadicFace builds the three edges of a face from its thread tensors,
// so the triangle closes by construction.
func NewTriadicFace(threads [3]int, ti, tj, tk Tensor) (TriadicFace, error) {
	i, j, k := threads[0], threads[1], threads[2]
	ij, err := NewDyadicEdge(edgeID(i, j), ti, tj)
	if err != nil {
		return TriadicFace{}, err
	}
	jk, err := NewDyadicEdge(edgeID(j, k), tj, tk)
	if err != nil {
		return TriadicFace{}, err
	}
	ki, err := NewDyadicEdge(edgeID(k, i), tk, ti)
	if err != nil {
		return TriadicFace{}, err
	}
	return TriadicFace{Threads: threads, EdgeIJ: ij, EdgeJK: jk, EdgeKI: ki}, nil
}

// ExtractThreadsFromFace recovers the three thread tensors as the mean of
// the two edge endpoints incident to each thread. It inverts NewTriadicFace.
func ExtractThreadsFromFace(f TriadicFace) ([3]Tensor, error) {
	var out [3]Tensor
	pairs := [3][2]Tensor{
		{f.EdgeIJ.PoleA, f.EdgeKI.PoleB},
		{f.EdgeJK.PoleA, f.EdgeIJ.PoleB},
		{f.EdgeKI.PoleA, f.EdgeJK.PoleB},
	}
	for n, p := range pairs {
		t, err := MeanOf(p[0], p[1])
		if err != nil {
			return out, fmt.Errorf("extract thread %d of face %v: %w", f.Threads[n], f.Threads, err)
		}
		out[n] = t
	}
	return out, nil
}

// TriadicIntegrate concatenates three threads along their last dimension
// and applies GELU. For 1-D threads of length d the result has length 3d.
func TriadicIntegrate(ti, tj, tk Tensor) (Tensor, error) {
	joined, err := Concat(-1, ti, tj, tk)
	if err != nil {
		return Tensor{}, fmt.Errorf("triadic integrate: %w", err)
	}
	return joined.GELU(), nil
}

// Tetrahedron layout shared by bundles: pair and face thread numbers.
var (
	bundlePairs = [6][2]int{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}
	bundleFaces = [4][3]int{{1, 2, 3}, {1, 2, 4}, {1, 3, 4}, {2, 3, 4}}
)

// TetradicBundle holds the six pairwise edges and four faces over four
// threads numbered 1..4.
type TetradicBundle struct {
	Edges [6]DyadicEdge
	Faces [4]TriadicFace
}

// NewTetradicBundle derives every edge and face from the four threads.
func NewTetradicBundle(threads [4]Tensor) (TetradicBundle, error) {
	var b TetradicBundle
	for n, p := range bundlePairs {
		e, err := NewDyadicEdge(edgeID(p[0], p[1]), threads[p[0]-1], threads[p[1]-1])
		if err != nil {
			return TetradicBundle{}, fmt.Errorf("tetradic bundle: %w", err)
		}
		b.Edges[n] = e
	}
	for n, f := range bundleFaces {
		face, err := NewTriadicFace(f, threads[f[0]-1], threads[f[1]-1], threads[f[2]-1])
		if err != nil {
			return TetradicBundle{}, fmt.Errorf("tetradic bundle: %w", err)
		}
		b.Faces[n] = face
	}
	return b, nil
}

// ExtractVerticesFromBundle recovers each of the four threads as the mean
// of its estimates from the three faces incident to it.
func ExtractVerticesFromBundle(b TetradicBundle) ([4]Tensor, error) {
	var estimates [4][]Tensor
	for _, face := range b.Faces {
		threads, err := ExtractThreadsFromFace(face)
		if err != nil {
			return [4]Tensor{}, err
		}
		for n, id := range face.Threads {
			if id < 1 || id > 4 {
				return [4]Tensor{}, &ShapeError{Op: "extract_vertices", Reason: fmt.Sprintf("thread id %d outside 1..4", id)}
			}
			estimates[id-1] = append(estimates[id-1], threads[n])
		}
	}
	var out [4]Tensor
	for v := range estimates {
		m, err := MeanOf(estimates[v]...)
		if err != nil {
			return [4]Tensor{}, fmt.Errorf("extract vertex %d: %w", v+1, err)
		}
		out[v] = m
	}
	return out, nil
}

// TetradicIntegrate concatenates four vertices along their last dimension
// and applies GELU.
func TetradicIntegrate(v [4]Tensor) (Tensor, error) {
	joined, err := Concat(-1, v[0], v[1], v[2], v[3])
	if err != nil {
		return Tensor{}, fmt.Errorf("tetradic integrate: %w", err)
	}
	return joined.GELU(), nil
}
