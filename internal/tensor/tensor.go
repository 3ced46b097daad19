package tensor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Kind tags the element precision a tensor represents. Storage is always
// float64; Float32 tensors round every element through float32 on creation.
type Kind int

const (
	Float64 Kind = iota
	Float32
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Tensor is an immutable shaped numeric buffer.
//
// INVARIANT: len(data) == product(shape). The zero value is an empty tensor
// with no shape; operations reject it.
type Tensor struct {
	data  []float64
	shape []int
	kind  Kind
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New creates a tensor from a shape and its row-major data. Both slices are
// copied.
func New(shape []int, data []float64) (Tensor, error) {
	if len(shape) == 0 {
		return Tensor{}, &ShapeError{Op: "new", Left: shape, Reason: "need at least one dimension"}
	}
	for _, d := range shape {
		if d <= 0 {
			return Tensor{}, &ShapeError{Op: "new", Left: slices.Clone(shape), Reason: "dimensions must be positive"}
		}
	}
	if product(shape) != len(data) {
		return Tensor{}, &ShapeError{
			Op:     "new",
			Left:   slices.Clone(shape),
			Reason: fmt.Sprintf("%d elements for %d slots", len(data), product(shape)),
		}
	}
	return Tensor{data: slices.Clone(data), shape: slices.Clone(shape)}, nil
}

// MustNew is New that panics on error. For literals in code and tests.
func MustNew(shape []int, data []float64) Tensor {
	t, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Vector creates a 1-D tensor.
func Vector(values ...float64) Tensor {
	return MustNew([]int{len(values)}, values)
}

// Full creates a tensor with every element set to value.
func Full(value float64, shape ...int) Tensor {
	data := make([]float64, product(shape))
	for i := range data {
		data[i] = value
	}
	return MustNew(shape, data)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape ...int) Tensor {
	return Full(0, shape...)
}

// Random creates a tensor with elements uniform in [-scale, scale).
func Random(rng *rand.Rand, scale float64, shape ...int) Tensor {
	data := make([]float64, product(shape))
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * scale
	}
	return MustNew(shape, data)
}

// Shape returns a copy of the tensor's shape.
func (t Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// Data returns a copy of the row-major buffer.
func (t Tensor) Data() []float64 {
	return slices.Clone(t.data)
}

// Len returns the number of elements.
func (t Tensor) Len() int {
	return len(t.data)
}

// Dims returns the number of dimensions.
func (t Tensor) Dims() int {
	return len(t.shape)
}

// LastDim returns the size of the trailing dimension, or 0 for an empty
// tensor.
func (t Tensor) LastDim() int {
	if len(t.shape) == 0 {
		return 0
	}
	return t.shape[len(t.shape)-1]
}

// Kind returns the element kind tag.
func (t Tensor) Kind() Kind {
	return t.kind
}

// IsEmpty reports whether t is the zero Tensor.
func (t Tensor) IsEmpty() bool {
	return len(t.shape) == 0
}

// At returns the element at a flat index.
func (t Tensor) At(i int) float64 {
	return t.data[i]
}

// As returns a copy of t tagged with kind k. Converting to Float32 rounds
// every element.
func (t Tensor) As(k Kind) Tensor {
	out := t.with(slices.Clone(t.data))
	out.kind = k
	if k == Float32 {
		for i, v := range out.data {
			out.data[i] = float64(float32(v))
		}
	}
	return out
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b Tensor) bool {
	return slices.Equal(a.shape, b.shape)
}

// Equal reports whether a and b have the same shape and every element
// differs by at most tol.
func Equal(a, b Tensor, tol float64) bool {
	if !SameShape(a, b) {
		return false
	}
	for i := range a.data {
		if math.Abs(a.data[i]-b.data[i]) > tol {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (t Tensor) String() string {
	return fmt.Sprintf("Tensor%v%v", t.shape, t.data)
}

// with builds a tensor sharing t's shape and kind around a fresh buffer.
// The buffer must not be referenced elsewhere.
func (t Tensor) with(data []float64) Tensor {
	out := Tensor{data: data, shape: slices.Clone(t.shape), kind: t.kind}
	if t.kind == Float32 {
		for i, v := range out.data {
			out.data[i] = float64(float32(v))
		}
	}
	return out
}

// mapped applies f to each element.
func (t Tensor) mapped(f func(float64) float64) Tensor {
	data := make([]float64, len(t.data))
	for i, v := range t.data {
		data[i] = f(v)
	}
	return t.with(data)
}
