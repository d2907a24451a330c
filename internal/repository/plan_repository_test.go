package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
)

func TestPlanReorder_AssignsPositions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM pricing_plans WHERE id IN \(\?, \?, \?\) FOR UPDATE`).
		WithArgs("c", "a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b").AddRow("c"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM pricing_plans`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	prep := mock.ExpectPrepare("UPDATE pricing_plans SET display_order")
	prep.ExpectExec().WithArgs(1, "c").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(2, "a").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(3, "b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewPlanRepo(db).Reorder(context.Background(), []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanReorder_UnknownIDChangesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM pricing_plans WHERE id IN`).
		WithArgs("a", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))
	mock.ExpectRollback()

	err = NewPlanRepo(db).Reorder(context.Background(), []string{"a", "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	// No UPDATE was expected, so any write would fail the expectations.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanReorder_PartialListChangesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM pricing_plans WHERE id IN`).
		WithArgs("b", "a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM pricing_plans`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectRollback()

	err = NewPlanRepo(db).Reorder(context.Background(), []string{"b", "a"})
	assert.ErrorIs(t, err, ErrPartialOrder)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanCreate_DuplicateServiceTypeIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO pricing_plans").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewPlanRepo(db).Create(context.Background(), model.PricingPlan{
		ServiceType: model.ServiceLandingPage, Name: "Landing", PriceCents: 1000, StorageLimitMB: 10,
	})
	assert.ErrorIs(t, err, ErrServiceTypeTaken)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanGetByID_DecodesFeatures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "service_type", "name", "description", "price_cents", "features",
		"storage_limit_mb", "is_active", "display_order", "created_at", "updated_at"}
	mock.ExpectQuery("FROM pricing_plans WHERE id=").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("p1", "ECOMMERCE", "Loja", "", int64(99000),
			[]byte(`["Catálogo","Checkout"]`), 500, true, 1, fixedTime, fixedTime))

	p, err := NewPlanRepo(db).GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Catálogo", "Checkout"}, p.Features)
	assert.Equal(t, model.ServiceEcommerce, p.ServiceType)
	assert.True(t, p.Active)
}
