// Package stream implements the three phase-offset streams that walk the
// 12-step cycle in lock-step.
//
// Streams start at steps 1, 5 and 9 (perception, action, simulation), each
// exactly 4 steps from its neighbours. A tick runs the transition selected
// by each stream's current step (relevance realization, affordance
// interaction or salience simulation), advances every stream one step and
// then checks whether the three positions form a synchronization triad. At
// a triad the stream tensors are merged with the triadic combinators; at the
// end of each full cycle the tetradic combinator folds in the last triadic
// integration as a fourth thread.
//
// Scheduling is deterministic. A seeded random source is used only for the
// initial stream tensors and for pattern confidence scores.
package stream
