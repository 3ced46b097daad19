package stepclock

import "fmt"

// Dyad is one pole of the double step delay pattern.
type Dyad string

const (
	DyadA Dyad = "A"
	DyadB Dyad = "B"
)

// DoubleStepDelayState is the derived period-4 state of an absolute step.
//
// The dyad alternates every two steps while the triad index advances one
// step behind it, so the pair walks a single 4-cycle rather than the full
// 2x3 product.
type DoubleStepDelayState struct {
	State       int  `json:"state"`
	Dyad        Dyad `json:"dyad"`
	Triad       int  `json:"triad"`
	PatternStep int  `json:"pattern_step"`
}

var doubleStepDelayTable = [4]DoubleStepDelayState{
	{State: 1, Dyad: DyadA, Triad: 1, PatternStep: 1},
	{State: 4, Dyad: DyadA, Triad: 2, PatternStep: 2},
	{State: 6, Dyad: DyadB, Triad: 2, PatternStep: 3},
	{State: 1, Dyad: DyadB, Triad: 3, PatternStep: 4},
}

// mod returns n mod m in 0..m-1 for any sign of n.
func mod(n, m int) int {
	return ((n % m) + m) % m
}

// DoubleStepDelay returns the double step delay state of an absolute step.
// Defined for every integer; period 4.
func DoubleStepDelay(absolute int) DoubleStepDelayState {
	return doubleStepDelayTable[mod(absolute-1, 4)]
}

// StreamID identifies one of the three concurrent streams. Integration is
// the reserved cross-stream slot on every fourth step.
type StreamID int

const (
	Integration StreamID = 0
	Stream1     StreamID = 1
	Stream2     StreamID = 2
	Stream3     StreamID = 3
)

// String implements fmt.Stringer.
func (s StreamID) String() string {
	if s == Integration {
		return "integration"
	}
	return fmt.Sprintf("stream-%d", int(s))
}

// PrimaryStream returns which stream leads an absolute step: streams 1..3
// for remainders 1..3 mod 4, Integration for multiples of 4.
func PrimaryStream(absolute int) StreamID {
	return StreamID(mod(absolute, 4))
}

// ThreadPair is an unordered pair of thread identities in 1..4.
type ThreadPair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Complementary pairs are adjacent so that every two steps cover all four
// threads.
var dyadicPairs = [6]ThreadPair{
	{1, 2}, {3, 4},
	{1, 3}, {2, 4},
	{1, 4}, {2, 3},
}

// DyadicPair returns the thread pair visited on an absolute step. Period 6:
// each of the six pairs is visited once per period.
func DyadicPair(absolute int) ThreadPair {
	return dyadicPairs[mod(absolute-1, 6)]
}

// Face is the thread identities of one tetrahedral face, in ascending order.
type Face [3]int

// Faces lists the four faces of the thread tetrahedron.
var Faces = [4]Face{
	{1, 2, 3},
	{1, 2, 4},
	{1, 3, 4},
	{2, 3, 4},
}

// TriadicPermutation pairs the two complementary face rotations active on
// a step.
type TriadicPermutation struct {
	MP1 Face `json:"mp1"`
	MP2 Face `json:"mp2"`
}

// TriadicPermutations returns the face rotations for an absolute step.
// Period 4: MP1 visits each face once per period, MP2 runs half a period
// behind it, so the two never coincide.
func TriadicPermutations(absolute int) TriadicPermutation {
	i := mod(absolute-1, 4)
	return TriadicPermutation{
		MP1: Faces[i],
		MP2: Faces[(i+2)%4],
	}
}
