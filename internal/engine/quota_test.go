package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)

	for i := 0; i < 3; i++ {
		assert.NoError(t, q.Check("p-1"), "dispatch %d should be allowed", i+1)
	}
	assert.Error(t, q.Check("p-1"))
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(2)
	require.NoError(t, q.Check("p-1"))
	require.NoError(t, q.Check("p-1"))

	err := q.Check("p-1")
	require.Error(t, err)

	var de *DispatchesExceededError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "p-1", de.ProcessID)
	assert.Equal(t, 3, de.Dispatches)
	assert.Equal(t, 2, de.Limit)
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsQuotaError(quotaError("p-1", err)))
	assert.Equal(t, "QUOTA_EXCEEDED: completion not dispatched (process=p-1): "+err.Error(), quotaError("p-1", err).Error())
}

func TestQuotaEnforcer_PerProcess(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check("a"))
	require.NoError(t, q.Check("b"))
	assert.Error(t, q.Check("a"))

	q.Forget("a")
	assert.NoError(t, q.Check("a"))
}

func TestRuntimeError(t *testing.T) {
	base := fmt.Errorf("timeout")
	err := collaboratorError("p-9", "complete", base)
	assert.Equal(t, "COLLABORATOR_FAILED: complete failed (process=p-9): timeout", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsCollaboratorError(err))
	assert.False(t, IsQuotaError(err))

	wrapped := fmt.Errorf("tick 4: %w", &RuntimeError{Code: ErrCodeQuotaExceeded, Message: "no dispatches left"})
	assert.True(t, IsQuotaError(wrapped))
	assert.Equal(t, "JOURNAL_FAILED: append event", journalError("append event", nil).Error())
}
