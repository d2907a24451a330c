// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/agency-portal/internal/apperrors"
)

// ErrNotFound is returned when a row does not exist under the caller's
// scope. Handlers translate it into an HTTP 404 response.
var ErrNotFound = apperrors.ErrNotFound

// ErrConflict is returned when a write would violate a uniqueness rule.
// Handlers translate it into an HTTP 409 response.
var ErrConflict = apperrors.ErrConflict

// ErrStaleState is returned when a guarded update found the row in a
// different state than the caller expected, e.g. a briefing that another
// admin already approved.
var ErrStaleState = fmt.Errorf("%w: record changed concurrently", apperrors.ErrConflict)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = fmt.Errorf("%w: email already exists", apperrors.ErrConflict)

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// notFound converts sql.ErrNoRows into ErrNotFound and leaves other errors
// untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
