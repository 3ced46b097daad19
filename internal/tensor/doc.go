// Package tensor is the small numeric substrate used to combine stream state
// at synchronization points.
//
// A Tensor is an immutable flat float64 buffer plus a shape. Every operation
// returns a new Tensor and accessors hand out copies, so a tensor captured by
// one stream can never be mutated through another.
//
// On top of the elementwise, matrix and activation operations sit the
// relational combinators:
//
//   - DyadicEdge: two equal-shaped poles. OpponentProcess (order-sensitive)
//     and Entangle (symmetric) reduce an edge to one tensor.
//   - TriadicFace: three edges closing a triangle over three threads.
//     ExtractThreadsFromFace recovers the threads; TriadicIntegrate combines
//     them.
//   - TetradicBundle: six edges and four faces over four threads.
//     ExtractVerticesFromBundle and TetradicIntegrate do the same one level up.
//
// Shape mismatches are programmer errors and are reported as *ShapeError.
// This is not a trainable model: there are no gradients and no parameters.
package tensor
