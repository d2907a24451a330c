package model

import "time"

// MaxPlanFeatures bounds the feature list of a pricing plan.
const MaxPlanFeatures = 15

// PricingPlan represents a row of `pricing_plans`.  There is at most one plan
// per service type; DisplayOrder drives the public listing.
type PricingPlan struct {
	ID             string      `json:"id"`             // pricing_plans.id
	ServiceType    ServiceType `json:"serviceType"`    // pricing_plans.service_type (unique)
	Name           string      `json:"name"`           // pricing_plans.name
	Description    string      `json:"description"`    // pricing_plans.description
	PriceCents     int64       `json:"priceCents"`     // pricing_plans.price_cents
	Features       []string    `json:"features"`       // pricing_plans.features (JSON array)
	StorageLimitMB int         `json:"storageLimitMb"` // pricing_plans.storage_limit_mb
	Active         bool        `json:"active"`         // pricing_plans.is_active
	DisplayOrder   int         `json:"displayOrder"`   // pricing_plans.display_order
	CreatedAt      time.Time   `json:"createdAt"`      // pricing_plans.created_at
	UpdatedAt      time.Time   `json:"updatedAt"`      // pricing_plans.updated_at
}
