package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
)

func approvalFixture() (model.Project, []model.Milestone) {
	p := model.Project{ID: "p1", UserID: "u1", Name: "ACME", Description: "site", Status: model.ProjectAwaitingApproval}
	ms := make([]model.Milestone, 0, model.MilestoneCount)
	for i, title := range model.DefaultMilestoneTitles {
		ms = append(ms, model.Milestone{ID: "m" + string(rune('1'+i)), ProjectID: "p1", Title: title, DisplayOrder: i + 1})
	}
	return p, ms
}

func TestBriefingApprove_CommitsProjectMilestonesAndStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p, ms := approvalFixture()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM briefings WHERE id=\? FOR UPDATE`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("EM_ANALISE"))
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(0, 1))
	for range ms {
		mock.ExpectExec("INSERT INTO project_milestones").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("UPDATE briefings SET status").WithArgs("APROVADO", "p1", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := NewBriefingRepo(db).Approve(context.Background(), "b1", model.BriefingInReview, p, ms)
	require.NoError(t, err)
	require.NotNil(t, got.BriefingID)
	assert.Equal(t, "b1", *got.BriefingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBriefingApprove_RollsBackWhenMilestoneInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p, ms := approvalFixture()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM briefings`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("EM_ANALISE"))
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO project_milestones").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO project_milestones").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err = NewBriefingRepo(db).Approve(context.Background(), "b1", model.BriefingInReview, p, ms)
	require.Error(t, err)
	// The briefing status update must never have been attempted.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBriefingApprove_StaleStatusIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p, ms := approvalFixture()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM briefings`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("APROVADO"))
	mock.ExpectRollback()

	_, err = NewBriefingRepo(db).Approve(context.Background(), "b1", model.BriefingInReview, p, ms)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBriefingApprove_MissingBriefing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p, ms := approvalFixture()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM briefings`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err = NewBriefingRepo(db).Approve(context.Background(), "nope", model.BriefingInReview, p, ms)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBriefingReject_GuardedByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE briefings SET status=\\?, rejection_reason=\\?").
		WithArgs("REJEITADO", "orçamento insuficiente", "b1", "EM_ANALISE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = NewBriefingRepo(db).Reject(context.Background(), "b1", model.BriefingInReview, "orçamento insuficiente")
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}
