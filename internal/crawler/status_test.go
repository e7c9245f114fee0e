package crawler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusPaused, false},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusPaused, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusPending, false},
		{StatusPaused, StatusRunning, true},
		{StatusPaused, StatusCancelled, true},
		{StatusPaused, StatusCompleted, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusCancelled, StatusRunning, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTaskStatusAllowed(t *testing.T) {
	t.Parallel()

	require.True(t, StatusRunning.Allowed(ActionPause))
	require.False(t, StatusPending.Allowed(ActionPause))
	require.True(t, StatusPaused.Allowed(ActionResume))
	require.False(t, StatusRunning.Allowed(ActionResume))
	require.True(t, StatusRunning.Allowed(ActionCancel))
	require.True(t, StatusPaused.Allowed(ActionCancel))
	require.False(t, StatusPending.Allowed(ActionCancel))

	for _, s := range []TaskStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		require.True(t, s.Terminal())
		require.True(t, s.Allowed(ActionDelete))
		require.False(t, s.Allowed(ActionPause))
		require.False(t, s.Allowed(ActionResume))
		require.False(t, s.Allowed(ActionCancel))
	}
	for _, s := range []TaskStatus{StatusPending, StatusRunning, StatusPaused} {
		require.False(t, s.Terminal())
		require.False(t, s.Allowed(ActionDelete))
	}
}

func TestCheckActionWrapsSentinel(t *testing.T) {
	t.Parallel()

	err := CheckAction(StatusPending, ActionPause)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIllegalTransition))
	require.Contains(t, err.Error(), "pause")
	require.NoError(t, CheckAction(StatusRunning, ActionPause))
}
