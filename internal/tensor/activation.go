package tensor

import (
	"math"
	"slices"
)

// ReLU returns max(0, x) elementwise.
func (t Tensor) ReLU() Tensor {
	return t.mapped(func(v float64) float64 { return math.Max(0, v) })
}

// Sigmoid returns 1/(1+e^-x) elementwise.
func (t Tensor) Sigmoid() Tensor {
	return t.mapped(sigmoid)
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// Tanh returns tanh(x) elementwise.
func (t Tensor) Tanh() Tensor {
	return t.mapped(math.Tanh)
}

// gelu constants for the tanh approximation.
var geluScale = math.Sqrt(2 / math.Pi)

const geluCubic = 0.044715

// GELU applies the tanh approximation of the Gaussian error linear unit.
func (t Tensor) GELU() Tensor {
	return t.mapped(func(x float64) float64 {
		return 0.5 * x * (1 + math.Tanh(geluScale*(x+geluCubic*x*x*x)))
	})
}

// Softmax normalizes each slice along the last dimension into a
// probability distribution. The row max is subtracted before exponentiating.
func (t Tensor) Softmax() Tensor {
	if t.IsEmpty() {
		return t
	}
	width := t.LastDim()
	data := make([]float64, len(t.data))
	for start := 0; start < len(t.data); start += width {
		row := t.data[start : start+width]
		m := slices.Max(row)
		var sum float64
		for i, v := range row {
			e := math.Exp(v - m)
			data[start+i] = e
			sum += e
		}
		for i := range row {
			data[start+i] /= sum
		}
	}
	return t.with(data)
}

// LayerNorm normalizes each trailing block matching normalizedShape to zero
// mean and unit variance. eps guards the variance.
func (t Tensor) LayerNorm(normalizedShape []int, eps float64) (Tensor, error) {
	n := len(normalizedShape)
	if n == 0 || n > t.Dims() || !slices.Equal(t.shape[t.Dims()-n:], normalizedShape) {
		return Tensor{}, &ShapeError{
			Op:     "layer_norm",
			Left:   t.Shape(),
			Right:  slices.Clone(normalizedShape),
			Reason: "normalized shape must match trailing dimensions",
		}
	}
	width := product(normalizedShape)
	data := make([]float64, len(t.data))
	for start := 0; start < len(t.data); start += width {
		block := t.data[start : start+width]
		var mean float64
		for _, v := range block {
			mean += v
		}
		mean /= float64(width)
		var variance float64
		for _, v := range block {
			d := v - mean
			variance += d * d
		}
		variance /= float64(width)
		denom := math.Sqrt(variance + eps)
		for i, v := range block {
			data[start+i] = (v - mean) / denom
		}
	}
	return t.with(data), nil
}

// Norm returns the L2 norm of all elements.
func (t Tensor) Norm() float64 {
	var s float64
	for _, v := range t.data {
		s += v * v
	}
	return math.Sqrt(s)
}

// Normalize scales t to unit L2 norm. A zero tensor is returned unchanged.
func (t Tensor) Normalize() Tensor {
	n := t.Norm()
	if n == 0 {
		return t.with(slices.Clone(t.data))
	}
	return t.Scale(1 / n)
}
