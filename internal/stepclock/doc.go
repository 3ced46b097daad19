// Package stepclock maps step counters onto the fixed modular cycles that
// drive the cognitive engine.
//
// Two cycles exist:
//
//   - Cycle30: 3 phases x 5 stages x 2 steps. Each absolute step 1..30 has a
//     unique StepAddress.
//   - Cycle12: the stream/process cycle. Each step 1..12 has a StepProfile
//     (mode and step type) and belongs to exactly one triad of steps that are
//     4 apart.
//
// Both are instances of the generic Cycle type, parameterized only by their
// lookup table. Everything in this package is pure: no clocks, no state, no
// randomness. Derived cyclic states (double step delay, primary stream,
// dyadic pair, triadic permutation) are total functions of the step number.
package stepclock
