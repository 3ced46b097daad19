package tensor

import (
	"fmt"
	"slices"
)

func elementwise(op string, a, b Tensor, f func(x, y float64) float64) (Tensor, error) {
	if a.IsEmpty() || !SameShape(a, b) {
		return Tensor{}, mismatch(op, a, b, "")
	}
	data := make([]float64, len(a.data))
	for i := range a.data {
		data[i] = f(a.data[i], b.data[i])
	}
	return a.with(data), nil
}

// Add returns a + b elementwise.
func Add(a, b Tensor) (Tensor, error) {
	return elementwise("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b elementwise.
func Sub(a, b Tensor) (Tensor, error) {
	return elementwise("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns the elementwise (Hadamard) product.
func Mul(a, b Tensor) (Tensor, error) {
	return elementwise("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Scale multiplies every element by s.
func (t Tensor) Scale(s float64) Tensor {
	return t.mapped(func(v float64) float64 { return v * s })
}

// MatMul multiplies two 2-D tensors: [m,k] x [k,n] -> [m,n].
func MatMul(a, b Tensor) (Tensor, error) {
	if a.Dims() != 2 || b.Dims() != 2 {
		return Tensor{}, mismatch("matmul", a, b, "need exactly 2 dimensions")
	}
	m, k, n := a.shape[0], a.shape[1], b.shape[1]
	if b.shape[0] != k {
		return Tensor{}, mismatch("matmul", a, b, fmt.Sprintf("inner dimensions %d and %d differ", k, b.shape[0]))
	}
	data := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			av := a.data[i*k+p]
			if av == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				data[i*n+j] += av * b.data[p*n+j]
			}
		}
	}
	return Tensor{data: data, shape: []int{m, n}, kind: a.kind}, nil
}

// Dot returns the inner product of two equal-length 1-D tensors.
func Dot(a, b Tensor) (float64, error) {
	if a.Dims() != 1 || !SameShape(a, b) {
		return 0, mismatch("dot", a, b, "need two 1-D tensors of equal length")
	}
	var sum float64
	for i := range a.data {
		sum += a.data[i] * b.data[i]
	}
	return sum, nil
}

// Concat joins tensors along dim. All other dimensions must agree.
func Concat(dim int, ts ...Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Tensor{}, &ShapeError{Op: "concat", Reason: "no tensors"}
	}
	first := ts[0]
	if first.IsEmpty() {
		return Tensor{}, &ShapeError{Op: "concat", Left: first.Shape(), Reason: "empty tensor"}
	}
	if dim < 0 {
		dim += first.Dims()
	}
	if dim < 0 || dim >= first.Dims() {
		return Tensor{}, &ShapeError{Op: "concat", Left: first.Shape(), Reason: fmt.Sprintf("dimension %d out of range", dim)}
	}

	joined := 0
	for _, t := range ts {
		if t.Dims() != first.Dims() {
			return Tensor{}, mismatch("concat", first, t, "dimension count differs")
		}
		for d := range t.shape {
			if d != dim && t.shape[d] != first.shape[d] {
				return Tensor{}, mismatch("concat", first, t, fmt.Sprintf("dimension %d differs", d))
			}
		}
		joined += t.shape[dim]
	}

	outer := product(first.shape[:dim])
	inner := product(first.shape[dim+1:])
	data := make([]float64, 0, outer*joined*inner)
	for o := 0; o < outer; o++ {
		for _, t := range ts {
			block := t.shape[dim] * inner
			data = append(data, t.data[o*block:(o+1)*block]...)
		}
	}
	shape := slices.Clone(first.shape)
	shape[dim] = joined
	return Tensor{data: data, shape: shape, kind: first.kind}, nil
}

// Reshape returns the same elements under a new shape with equal size.
func (t Tensor) Reshape(shape ...int) (Tensor, error) {
	if product(shape) != len(t.data) {
		return Tensor{}, &ShapeError{Op: "reshape", Left: t.Shape(), Right: slices.Clone(shape), Reason: "element count differs"}
	}
	out, err := New(shape, t.data)
	if err != nil {
		return Tensor{}, err
	}
	out.kind = t.kind
	return out, nil
}

// Transpose swaps the two axes of a 2-D tensor.
func (t Tensor) Transpose() (Tensor, error) {
	if t.Dims() != 2 {
		return Tensor{}, &ShapeError{Op: "transpose", Left: t.Shape(), Reason: "need exactly 2 dimensions"}
	}
	rows, cols := t.shape[0], t.shape[1]
	data := make([]float64, len(t.data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[j*rows+i] = t.data[i*cols+j]
		}
	}
	return Tensor{data: data, shape: []int{cols, rows}, kind: t.kind}, nil
}

// Sum returns the sum of all elements.
func (t Tensor) Sum() float64 {
	var s float64
	for _, v := range t.data {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of all elements, 0 for an empty tensor.
func (t Tensor) Mean() float64 {
	if len(t.data) == 0 {
		return 0
	}
	return t.Sum() / float64(len(t.data))
}

// Max returns the largest element, 0 for an empty tensor.
func (t Tensor) Max() float64 {
	if len(t.data) == 0 {
		return 0
	}
	return slices.Max(t.data)
}

// MeanOf averages equal-shaped tensors elementwise.
func MeanOf(ts ...Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Tensor{}, &ShapeError{Op: "mean", Reason: "no tensors"}
	}
	acc := ts[0]
	var err error
	for _, t := range ts[1:] {
		acc, err = Add(acc, t)
		if err != nil {
			return Tensor{}, fmt.Errorf("mean: %w", err)
		}
	}
	return acc.Scale(1 / float64(len(ts))), nil
}
