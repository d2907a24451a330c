package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type briefingFixture struct {
	svc      *BriefingService
	store    *fakeBriefings
	projects *fakeProjects
	notes    *fakeNotifications
}

func newBriefingFixture(t *testing.T, bs ...model.Briefing) briefingFixture {
	projects := newFakeProjects()
	store := newFakeBriefings(projects, bs...)
	notes := newFakeNotifications()
	log := zaptest.NewLogger(t)
	svc := NewBriefingService(store, NewNotifier(notes, &fakePublisher{}, log), log)
	svc.now = fixedClock
	return briefingFixture{svc: svc, store: store, projects: projects, notes: notes}
}

func briefingIn(status model.BriefingStatus) model.Briefing {
	return model.Briefing{
		ID:          "b1",
		UserID:      "client-1",
		ServiceType: model.ServiceEcommerce,
		CompanyName: "Loja Azul",
		Description: "Uma loja virtual para roupas infantis.",
		Status:      status,
	}
}

func validBriefingInput() validation.BriefingInput {
	return validation.BriefingInput{
		ServiceType: model.ServiceLandingPage,
		CompanyName: "  Padaria Central ",
		Description: "Landing page para campanha de natal.",
	}
}

func TestBriefingCreate_OwnedDraft(t *testing.T) {
	f := newBriefingFixture(t)
	b, err := f.svc.Create(context.Background(), clientSession("client-1"), validBriefingInput())
	require.NoError(t, err)
	assert.Equal(t, model.BriefingDraft, b.Status)
	assert.Equal(t, "client-1", b.UserID)
	assert.Equal(t, "Padaria Central", b.CompanyName)
}

func TestBriefingAdminOperations_RefuseClientsWithoutWriting(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingInReview))
	ctx := context.Background()
	sess := clientSession("client-1")

	_, err := f.svc.Approve(ctx, sess, "b1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.Reject(ctx, sess, "b1", validation.RejectBriefingInput{Reason: "Fora do escopo da agência."})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.Review(ctx, sess, "b1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.List(ctx, sess, model.ListFilter{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Approve(ctx, nil, "b1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.projects.items)
	assert.Equal(t, model.BriefingInReview, f.store.items["b1"].Status)
}

func TestBriefingClientOperations_RefuseAdmins(t *testing.T) {
	f := newBriefingFixture(t)
	_, err := f.svc.Create(context.Background(), adminSession(), validBriefingInput())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Zero(t, f.store.writes)
}

func TestBriefingSubmit_SetsSubmittedAt(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingDraft))
	b, err := f.svc.Submit(context.Background(), clientSession("client-1"), "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BriefingSubmitted, b.Status)
	require.NotNil(t, b.SubmittedAt)
	assert.Equal(t, testNow, *b.SubmittedAt)
}

func TestBriefingSubmit_OtherOwnerIsNotFound(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingDraft))
	_, err := f.svc.Submit(context.Background(), clientSession("client-2"), "b1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, model.BriefingDraft, f.store.items["b1"].Status)
}

func TestBriefingUpdate_OnlyDrafts(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingSubmitted))
	_, err := f.svc.Update(context.Background(), clientSession("client-1"), "b1", validBriefingInput())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Zero(t, f.store.writes)
}

func TestBriefingReject_ReasonBounds(t *testing.T) {
	cases := []struct {
		name   string
		reason string
		ok     bool
	}{
		{"nine chars", strings.Repeat("a", 9), false},
		{"ten chars", strings.Repeat("a", 10), true},
		{"five hundred", strings.Repeat("a", 500), true},
		{"five hundred one", strings.Repeat("a", 501), false},
		{"blank after trim", "    " + strings.Repeat(" ", 20), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBriefingFixture(t, briefingIn(model.BriefingInReview))
			b, err := f.svc.Reject(context.Background(), adminSession(), "b1",
				validation.RejectBriefingInput{Reason: tc.reason})
			if !tc.ok {
				var ve *apperrors.ValidationError
				require.True(t, errors.As(err, &ve), "want validation error, got %v", err)
				assert.Contains(t, ve.Fields, "reason")
				assert.Equal(t, model.BriefingInReview, f.store.items["b1"].Status)
				assert.Zero(t, f.notes.count("client-1", model.NotifyBriefingRejected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.BriefingRejected, b.Status)
			require.NotNil(t, b.RejectionReason)
			assert.Equal(t, tc.reason, *b.RejectionReason)
			assert.Equal(t, 1, f.notes.count("client-1", model.NotifyBriefingRejected))
		})
	}
}

func TestBriefingReject_TerminalStatesRefused(t *testing.T) {
	for _, st := range []model.BriefingStatus{model.BriefingApproved, model.BriefingRejected, model.BriefingDraft} {
		f := newBriefingFixture(t, briefingIn(st))
		_, err := f.svc.Reject(context.Background(), adminSession(), "b1",
			validation.RejectBriefingInput{Reason: "Orçamento incompatível com o escopo."})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, string(st))
		assert.Equal(t, st, f.store.items["b1"].Status)
	}
}

func TestBriefingApprove_CreatesProjectWithFourMilestones(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingInReview))
	p, err := f.svc.Approve(context.Background(), adminSession(), "b1")
	require.NoError(t, err)

	assert.Equal(t, model.ProjectAwaitingApproval, p.Status)
	assert.Equal(t, "client-1", p.UserID)
	require.NotNil(t, p.BriefingID)
	assert.Equal(t, "b1", *p.BriefingID)
	assert.Equal(t, "Loja Azul - E-commerce", p.Name)

	ms := f.projects.milestones[p.ID]
	require.Len(t, ms, model.MilestoneCount)
	for i, m := range ms {
		assert.Equal(t, i+1, m.DisplayOrder)
		assert.Equal(t, model.DefaultMilestoneTitles[i], m.Title)
		assert.False(t, m.Completed)
	}

	b := f.store.items["b1"]
	assert.Equal(t, model.BriefingApproved, b.Status)
	require.NotNil(t, b.ProjectID)
	assert.Equal(t, p.ID, *b.ProjectID)
	assert.Equal(t, 1, f.notes.count("client-1", model.NotifyBriefingApproved))
}

func TestBriefingApprove_FailureLeavesNothingBehind(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingInReview))
	f.store.approveErr = errors.New("insert milestone 3: deadlock")

	_, err := f.svc.Approve(context.Background(), adminSession(), "b1")
	require.Error(t, err)

	assert.Empty(t, f.projects.items)
	assert.Empty(t, f.projects.milestones)
	assert.Equal(t, model.BriefingInReview, f.store.items["b1"].Status)
	assert.Nil(t, f.store.items["b1"].ProjectID)
	assert.Zero(t, f.notes.count("client-1", model.NotifyBriefingApproved))
}

func TestBriefingApprove_OnlyFromReview(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingSubmitted))
	_, err := f.svc.Approve(context.Background(), adminSession(), "b1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Empty(t, f.projects.items)
}

func TestBriefingReview_NotifiesOwner(t *testing.T) {
	f := newBriefingFixture(t, briefingIn(model.BriefingSubmitted))
	b, err := f.svc.Review(context.Background(), adminSession(), "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BriefingInReview, b.Status)
	assert.Equal(t, 1, f.notes.count("client-1", model.NotifyBriefingInReview))
}

func TestBriefingListOwn_OnlyCallerRows(t *testing.T) {
	other := briefingIn(model.BriefingDraft)
	other.ID, other.UserID = "b2", "client-2"
	f := newBriefingFixture(t, briefingIn(model.BriefingDraft), other)

	page, err := f.svc.ListOwn(context.Background(), clientSession("client-1"), model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b1", page.Items[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, model.DefaultPageSize, page.PageSize)
}
