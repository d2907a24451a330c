package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/model"
)

// ErrServiceTypeTaken is returned when a second plan targets a service type.
var ErrServiceTypeTaken = fmt.Errorf("%w: a plan for this service type already exists", ErrConflict)

// ErrPartialOrder is returned when a reorder does not list every plan.
var ErrPartialOrder = fmt.Errorf("%w: reorder must list every plan", apperrors.ErrValidation)

type PlanRepo struct{ db *sql.DB }

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

const planColumns = "id, service_type, name, description, price_cents, features, storage_limit_mb, is_active, display_order, created_at, updated_at"

func scanPlan(s rowScanner) (model.PricingPlan, error) {
	var (
		p        model.PricingPlan
		features []byte
	)
	if err := s.Scan(&p.ID, &p.ServiceType, &p.Name, &p.Description, &p.PriceCents, &features,
		&p.StorageLimitMB, &p.Active, &p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Features = []string{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return p, fmt.Errorf("decode features of plan %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeFeatures(features []string) (string, error) {
	if features == nil {
		features = []string{}
	}
	b, err := json.Marshal(features)
	return string(b), err
}

// List returns plans ordered by display order. activeOnly restricts the
// result to plans visible on the public price list.
func (r *PlanRepo) List(ctx context.Context, activeOnly bool) ([]model.PricingPlan, error) {
	q := "SELECT " + planColumns + " FROM pricing_plans"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY display_order, created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PricingPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns a single plan.
func (r *PlanRepo) GetByID(ctx context.Context, id string) (model.PricingPlan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM pricing_plans WHERE id=? LIMIT 1", id))
	return p, notFound(err)
}

// ServiceTypeTaken reports whether a plan other than excludeID already
// targets st. Pass an empty excludeID when creating.
func (r *PlanRepo) ServiceTypeTaken(ctx context.Context, st model.ServiceType, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pricing_plans WHERE service_type=? AND id<>?", st, excludeID).Scan(&n)
	return n > 0, err
}

// Create inserts a plan at the end of the display order.
func (r *PlanRepo) Create(ctx context.Context, p model.PricingPlan) (model.PricingPlan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return model.PricingPlan{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pricing_plans (id, service_type, name, description, price_cents, features, storage_limit_mb, is_active, display_order)
		SELECT ?,?,?,?,?,?,?,?, COALESCE(MAX(display_order), 0) + 1 FROM pricing_plans`,
		p.ID, p.ServiceType, p.Name, p.Description, p.PriceCents, features, p.StorageLimitMB, p.Active)
	if err != nil {
		if isDuplicate(err) {
			return model.PricingPlan{}, ErrServiceTypeTaken
		}
		return model.PricingPlan{}, err
	}
	return r.GetByID(ctx, p.ID)
}

// Update overwrites the editable fields of a plan.
func (r *PlanRepo) Update(ctx context.Context, p model.PricingPlan) (model.PricingPlan, error) {
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return model.PricingPlan{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE pricing_plans
		   SET service_type=?, name=?, description=?, price_cents=?, features=?, storage_limit_mb=?, is_active=?
		 WHERE id=?`,
		p.ServiceType, p.Name, p.Description, p.PriceCents, features, p.StorageLimitMB, p.Active, p.ID)
	if err != nil {
		if isDuplicate(err) {
			return model.PricingPlan{}, ErrServiceTypeTaken
		}
		return model.PricingPlan{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.PricingPlan{}, err
	} else if n == 0 {
		return model.PricingPlan{}, ErrNotFound
	}
	return r.GetByID(ctx, p.ID)
}

// Delete removes a plan.
func (r *PlanRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pricing_plans WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder assigns display order 1..n following ids. The ids are locked and
// counted first; if any of them is unknown the whole batch fails with
// ErrNotFound, and if some plan is left out it fails with ErrPartialOrder.
// Either way no row changes.
func (r *PlanRepo) Reorder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT id FROM pricing_plans WHERE id IN ("+placeholders(len(ids))+") FOR UPDATE", args...)
		if err != nil {
			return err
		}
		found := 0
		for rows.Next() {
			found++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		if found != len(ids) {
			return fmt.Errorf("%w: %d of %d plans exist", ErrNotFound, found, len(ids))
		}
		var total int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM pricing_plans").Scan(&total); err != nil {
			return err
		}
		if total != len(ids) {
			return ErrPartialOrder
		}

		stmt, err := tx.PrepareContext(ctx, "UPDATE pricing_plans SET display_order=? WHERE id=?")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, id := range ids {
			if _, err := stmt.ExecContext(ctx, i+1, id); err != nil {
				return fmt.Errorf("reorder plan %s: %w", id, err)
			}
		}
		return nil
	})
}
