package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_SingleProcess(t *testing.T) {
	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_SingleProcess -update
	result, err := RunWithGolden(t, loadFixture(t, "single_process.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalTrace_OneCanonicalLinePerEvent(t *testing.T) {
	out, err := MarshalTrace([]TraceEvent{
		{Tick: 0, Kind: "process_created", ProcessID: "proc-1", State: "PENDING"},
		{Tick: 3, Kind: "triad_convergence", Triad: []int{4, 8, 12}},
	})
	require.NoError(t, err)

	want := `{"kind":"process_created","process_id":"proc-1","state":"PENDING","tick":0}` + "\n" +
		`{"kind":"triad_convergence","tick":3,"triad":[4,8,12]}` + "\n"
	assert.Equal(t, want, string(out))
}

func TestMarshalTrace_Empty(t *testing.T) {
	out, err := MarshalTrace(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
