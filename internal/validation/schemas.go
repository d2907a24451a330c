package validation

import (
	"strings"
	"time"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
)

// RegisterInput is the payload of POST /auth/register.
type RegisterInput struct {
	Name             string `json:"name" validate:"required,min=2,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
	MarketingConsent bool   `json:"marketingConsent"`
}

func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() { in.Email = strings.ToLower(strings.TrimSpace(in.Email)) }

// RefreshInput carries a refresh token.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (in *RefreshInput) Normalize() { in.RefreshToken = strings.TrimSpace(in.RefreshToken) }

// BriefingInput creates or updates a draft briefing.
type BriefingInput struct {
	ServiceType model.ServiceType `json:"serviceType" validate:"required,service_type"`
	CompanyName string            `json:"companyName" validate:"required,min=2,max=200"`
	Description string            `json:"description" validate:"required,min=10,max=5000"`
	Budget      *string           `json:"budget" validate:"omitempty,max=100"`
	Deadline    *string           `json:"deadline" validate:"omitempty,max=100"`
}

func (in *BriefingInput) Normalize() {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Description = strings.TrimSpace(in.Description)
	in.Budget = trimOptional(in.Budget)
	in.Deadline = trimOptional(in.Deadline)
}

// RejectBriefingInput is the payload of the reject workflow operation.
type RejectBriefingInput struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

func (in *RejectBriefingInput) Normalize() { in.Reason = strings.TrimSpace(in.Reason) }

// ProjectStatusInput asks for a project status transition.
type ProjectStatusInput struct {
	Status model.ProjectStatus `json:"status" validate:"required,project_status"`
}

// MilestoneToggleInput names the milestone to flip.
type MilestoneToggleInput struct {
	MilestoneID string `json:"milestoneId" validate:"required,id"`
}

func (in *MilestoneToggleInput) Normalize() { in.MilestoneID = strings.TrimSpace(in.MilestoneID) }

// CommentInput is a project comment or admin note.
type CommentInput struct {
	Content     string  `json:"content" validate:"required,min=1,max=5000"`
	MilestoneID *string `json:"milestoneId" validate:"omitempty,id"`
}

func (in *CommentInput) Normalize() {
	in.Content = strings.TrimSpace(in.Content)
	in.MilestoneID = trimOptional(in.MilestoneID)
}

// PlanInput creates or replaces a pricing plan.
type PlanInput struct {
	ServiceType    model.ServiceType `json:"serviceType" validate:"required,service_type"`
	Name           string            `json:"name" validate:"required,min=2,max=100"`
	Description    string            `json:"description" validate:"max=500"`
	PriceCents     int64             `json:"priceCents" validate:"gt=0"`
	Features       []string          `json:"features" validate:"max=15,dive,required,min=1,max=200"`
	StorageLimitMB int               `json:"storageLimitMb" validate:"gt=0"`
	Active         *bool             `json:"active"`
}

func (in *PlanInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	for i, f := range in.Features {
		in.Features[i] = strings.TrimSpace(f)
	}
}

// ReorderInput lists plan ids in their new display order.
type ReorderInput struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,unique,dive,id"`
}

// RoleInput changes the role of a user.
type RoleInput struct {
	Role model.Role `json:"role" validate:"required,role"`
}

// PreferenceInput toggles the channels of one notification type.
type PreferenceInput struct {
	Type  model.NotificationType `json:"type" validate:"required,notification_type"`
	Email bool                   `json:"email"`
	Push  bool                   `json:"push"`
	InApp bool                   `json:"inApp"`
}

// PreferencesInput replaces a set of notification preferences.
type PreferencesInput struct {
	Preferences []PreferenceInput `json:"preferences" validate:"required,min=1,max=20,dive"`
}

// FilterInput is the raw query-string form of a list filter.
type FilterInput struct {
	Status      string `query:"status" json:"status"`
	ServiceType string `query:"serviceType" json:"serviceType" validate:"omitempty,service_type"`
	Search      string `query:"search" json:"search" validate:"max=100"`
	DateFrom    string `query:"dateFrom" json:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string `query:"dateTo" json:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	Page        int    `query:"page" json:"page" validate:"gte=0"`
	PageSize    int    `query:"pageSize" json:"pageSize" validate:"gte=0,lte=100"`
}

func (in *FilterInput) Normalize() {
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	in.ServiceType = strings.ToUpper(strings.TrimSpace(in.ServiceType))
	in.Search = strings.TrimSpace(in.Search)
}

// Filter validates in and converts it into a model.ListFilter.  validStatus
// decides which status values the listed entity accepts; empty strings are
// left unconstrained.  DateTo covers the whole named day.
func Filter(in FilterInput, validStatus func(string) bool) (model.ListFilter, error) {
	if err := Validate(&in); err != nil {
		return model.ListFilter{}, err
	}
	f := model.ListFilter{Page: in.Page, PageSize: in.PageSize}
	if in.Status != "" {
		if validStatus == nil || !validStatus(in.Status) {
			return model.ListFilter{}, apperrors.NewValidationError("status", "is not an accepted value")
		}
		s := in.Status
		f.Status = &s
	}
	if in.ServiceType != "" {
		st := model.ServiceType(in.ServiceType)
		f.ServiceType = &st
	}
	if in.Search != "" {
		s := in.Search
		f.Search = &s
	}
	if in.DateFrom != "" {
		from, _ := time.Parse(time.DateOnly, in.DateFrom)
		f.DateFrom = &from
	}
	if in.DateTo != "" {
		to, _ := time.Parse(time.DateOnly, in.DateTo)
		to = to.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &to
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return model.ListFilter{}, apperrors.NewValidationError("dateFrom", "must not be after dateTo")
	}
	return f, nil
}

// ProjectStatusFilter accepts project statuses in list filters.
func ProjectStatusFilter(s string) bool { return model.ProjectStatus(s).Valid() }

// BriefingStatusFilter accepts briefing statuses in list filters.
func BriefingStatusFilter(s string) bool { return model.BriefingStatus(s).Valid() }

// ClientStatusFilter accepts "ACTIVE" and "INACTIVE" for client lists.
func ClientStatusFilter(s string) bool { return s == "ACTIVE" || s == "INACTIVE" }

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
