package rebuild

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvisoryCrossesThreshold(t *testing.T) {
	a := New(3)
	require.False(t, a.ShouldRebuild())

	a.RecordTombstone()
	a.RecordTombstone()
	require.False(t, a.ShouldRebuild())

	a.RecordTombstone()
	require.True(t, a.ShouldRebuild())
	require.Equal(t, 3, a.Count())

	a.Reset()
	require.False(t, a.ShouldRebuild())
	require.Zero(t, a.Count())
}
