package stepclock

// Cycle is a modular step clock of fixed length backed by a lookup table.
//
// Steps are 1-based: valid steps are 1..Len(). The table is copied at
// construction and never mutated, so a Cycle is safe for concurrent reads.
type Cycle[T any] struct {
	name  string
	table []T
}

// NewCycle creates a cycle whose step n maps to table[n-1].
// Panics if the table is empty.
func NewCycle[T any](name string, table []T) *Cycle[T] {
	if len(table) == 0 {
		panic("stepclock: cycle " + name + " needs a non-empty table")
	}
	t := make([]T, len(table))
	copy(t, table)
	return &Cycle[T]{name: name, table: t}
}

// Name returns the cycle's label, used in error messages.
func (c *Cycle[T]) Name() string {
	return c.name
}

// Len returns the number of steps in one full cycle.
func (c *Cycle[T]) Len() int {
	return len(c.table)
}

// At returns the table entry for step, or a RangeError if step is not in
// 1..Len().
func (c *Cycle[T]) At(step int) (T, error) {
	if step < 1 || step > len(c.table) {
		var zero T
		return zero, &RangeError{What: c.name + " step", Value: step, Min: 1, Max: len(c.table)}
	}
	return c.table[step-1], nil
}

// MustAt is At for steps already known to be valid. Panics otherwise.
func (c *Cycle[T]) MustAt(step int) T {
	v, err := c.At(step)
	if err != nil {
		panic(err)
	}
	return v
}

// Next returns the step after step, wrapping Len() back to 1.
func (c *Cycle[T]) Next(step int) int {
	return c.Wrap(int64(step) + 1)
}

// Wrap folds any counter onto 1..Len(): Wrap(Len()+1) == 1, Wrap(0) == Len().
func (c *Cycle[T]) Wrap(n int64) int {
	l := int64(len(c.table))
	return int(((n-1)%l+l)%l) + 1
}

// Distance returns how many forward steps lead from one step to another,
// in 0..Len()-1.
func (c *Cycle[T]) Distance(from, to int) int {
	l := len(c.table)
	return ((to-from)%l + l) % l
}
