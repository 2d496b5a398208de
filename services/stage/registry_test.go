package stage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryKnowsAllStages(t *testing.T) {
	r := NewRegistry()

	expected := []Stage{
		Draft, Published, Collecting, Evaluating, InProgress,
		Reviewing, Publishing, Completed, Cancelled, Expired, Archived,
	}
	for _, s := range expected {
		require.True(t, r.IsKnown(s), "stage %s should be known", s)
	}
	require.False(t, r.IsKnown("launching"))
	require.Len(t, r.Stages(), len(expected))
}

func TestRegistryForwardTargets(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.IsForwardTarget(Draft, Published))
	require.True(t, r.IsForwardTarget(Published, Collecting))
	require.True(t, r.IsForwardTarget(Evaluating, InProgress))
	require.True(t, r.IsForwardTarget(Publishing, Completed))
	require.True(t, r.IsForwardTarget(Completed, Archived))

	require.False(t, r.IsForwardTarget(Draft, InProgress))
	require.False(t, r.IsForwardTarget(Reviewing, Completed))
	require.False(t, r.IsForwardTarget(Archived, Draft))
	require.Empty(t, r.AllowedForwardTargets(Archived))
}

func TestRegistryOverrideTable(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		reason   OverrideReason
		from, to Stage
	}{
		{OverrideUrgentTaskSkip, Draft, InProgress},
		{OverridePreApprovedContentSkip, InProgress, Publishing},
		{OverrideContentRevision, Reviewing, InProgress},
		{OverridePublishFailureRevert, Publishing, Reviewing},
	}
	for _, tc := range cases {
		from, to, ok := r.OverrideTarget(tc.reason)
		require.True(t, ok, "reason %s should be recognized", tc.reason)
		require.Equal(t, tc.from, from)
		require.Equal(t, tc.to, to)
	}

	_, _, ok := r.OverrideTarget("because_i_said_so")
	require.False(t, ok)
}

func TestRegistryEditableBy(t *testing.T) {
	r := NewRegistry()

	require.Equal(t, []Role{RoleSupplier}, r.EditableBy(Draft))
	require.Contains(t, r.EditableBy(Reviewing), RoleCreator)
	require.Contains(t, r.EditableBy(Reviewing), RoleSupplier)
}

func TestRegistryRequiredFields(t *testing.T) {
	r := NewRegistry()

	require.NotEmpty(t, r.RequiredFields(Draft))
	require.Equal(t, r.RequiredFields(Draft), r.RequiredFields(Published))
	require.Empty(t, r.RequiredFields(InProgress))
}

func TestRegistryProgress(t *testing.T) {
	r := NewRegistry()

	require.Equal(t, 8, r.ForwardStageCount())
	require.Equal(t, 12, r.ProgressPercent(Draft, nil))
	require.Equal(t, 100, r.ProgressPercent(Completed, nil))
	require.Equal(t, 0, r.ProgressPercent(Cancelled, nil))

	override := 75
	require.Equal(t, 75, r.ProgressPercent(InProgress, &override))

	tooBig := 140
	require.Equal(t, 100, r.ProgressPercent(InProgress, &tooBig))
}

func TestRegistryUnknownStagePanics(t *testing.T) {
	r := NewRegistry()
	require.Panics(t, func() { r.Definition("bogus") })
}
