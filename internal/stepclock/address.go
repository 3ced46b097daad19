package stepclock

// Cycle30 dimensions.
const (
	Phases          = 3
	StagesPerPhase  = 5
	StepsPerStage   = 2
	StepsPerPhase   = StagesPerPhase * StepsPerStage
	AddressCycleLen = Phases * StepsPerPhase
)

// StepAddress is the structured position of an absolute step in Cycle30.
type StepAddress struct {
	Phase    int `json:"phase"`
	Stage    int `json:"stage"`
	Step     int `json:"step"`
	Absolute int `json:"absolute"`
}

// Cycle30 is the 30-step addressing cycle.
var Cycle30 = NewCycle("address", buildAddressTable())

func buildAddressTable() []StepAddress {
	table := make([]StepAddress, 0, AddressCycleLen)
	for phase := 1; phase <= Phases; phase++ {
		for stage := 1; stage <= StagesPerPhase; stage++ {
			for step := 1; step <= StepsPerStage; step++ {
				table = append(table, StepAddress{
					Phase:    phase,
					Stage:    stage,
					Step:     step,
					Absolute: absoluteOf(phase, stage, step),
				})
			}
		}
	}
	return table
}

func absoluteOf(phase, stage, step int) int {
	return (phase-1)*StepsPerPhase + (stage-1)*StepsPerStage + step
}

// ToStepAddress returns the address of an absolute step in 1..30.
func ToStepAddress(absolute int) (StepAddress, error) {
	return Cycle30.At(absolute)
}

// ToAbsoluteStep is the inverse of ToStepAddress. Each component is
// range-checked; the Absolute field of addr is ignored.
func ToAbsoluteStep(addr StepAddress) (int, error) {
	if addr.Phase < 1 || addr.Phase > Phases {
		return 0, &RangeError{What: "phase", Value: addr.Phase, Min: 1, Max: Phases}
	}
	if addr.Stage < 1 || addr.Stage > StagesPerPhase {
		return 0, &RangeError{What: "stage", Value: addr.Stage, Min: 1, Max: StagesPerPhase}
	}
	if addr.Step < 1 || addr.Step > StepsPerStage {
		return 0, &RangeError{What: "step", Value: addr.Step, Min: 1, Max: StepsPerStage}
	}
	return absoluteOf(addr.Phase, addr.Stage, addr.Step), nil
}
