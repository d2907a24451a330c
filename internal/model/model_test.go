package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateProgress(t *testing.T) {
	cases := map[int]int{0: 0, 1: 25, 2: 50, 3: 75, 4: 100, 5: 100, 9: 100, -1: 0}
	for completed, want := range cases {
		assert.Equal(t, want, CalculateProgress(completed), "completed=%d", completed)
	}
}

func TestCalculateProgress_Monotonic(t *testing.T) {
	prev := CalculateProgress(0)
	for i := 1; i <= 8; i++ {
		cur := CalculateProgress(i)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestProgressOf(t *testing.T) {
	ms := []Milestone{{Completed: true}, {Completed: false}, {Completed: true}, {}}
	assert.Equal(t, 50, ProgressOf(ms))
	assert.Equal(t, 0, ProgressOf(nil))
}

func TestBriefingTransitions(t *testing.T) {
	assert.True(t, BriefingDraft.CanTransitionTo(BriefingSubmitted))
	assert.True(t, BriefingSubmitted.CanTransitionTo(BriefingInReview))
	assert.True(t, BriefingInReview.CanTransitionTo(BriefingApproved))
	assert.True(t, BriefingInReview.CanTransitionTo(BriefingRejected))

	assert.False(t, BriefingDraft.CanTransitionTo(BriefingApproved))
	assert.False(t, BriefingRejected.CanTransitionTo(BriefingSubmitted))
	assert.False(t, BriefingApproved.CanTransitionTo(BriefingRejected))
	assert.True(t, BriefingApproved.Terminal())
	assert.True(t, BriefingRejected.Terminal())
	assert.False(t, BriefingStatus("NOPE").Valid())
}

func TestProjectTransitions(t *testing.T) {
	tests := []struct {
		from, to ProjectStatus
		ok       bool
	}{
		{ProjectAwaitingApproval, ProjectActive, true},
		{ProjectActive, ProjectPaused, true},
		{ProjectPaused, ProjectActive, true},
		{ProjectActive, ProjectCompleted, true},
		{ProjectCompleted, ProjectArchived, true},
		{ProjectCancelled, ProjectArchived, true},
		{ProjectArchived, ProjectActive, false},
		{ProjectAwaitingApproval, ProjectArchived, false},
		{ProjectPaused, ProjectCompleted, false},
		{ProjectActive, ProjectActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestFileAccess_ReadableBy(t *testing.T) {
	owner := "owner"
	briefingOwner := "briefing-owner"
	f := FileAccess{
		File:            File{UserID: "uploader"},
		ProjectOwnerID:  &owner,
		BriefingOwnerID: &briefingOwner,
	}
	assert.True(t, f.ReadableBy("uploader"))
	assert.True(t, f.ReadableBy("owner"))
	assert.True(t, f.ReadableBy("briefing-owner"))
	assert.False(t, f.ReadableBy("stranger"))
	assert.False(t, f.ReadableBy(""))
}

func TestServiceType(t *testing.T) {
	assert.True(t, ServiceEcommerce.Valid())
	assert.Equal(t, "E-commerce", ServiceEcommerce.Label())
	assert.False(t, ServiceType("PODCAST").Valid())
}
