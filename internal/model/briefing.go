package model

import "time"

// ServiceType enumerates the services the agency sells.  Briefings request
// one of them and each pricing plan is bound to exactly one.
type ServiceType string

const (
	ServiceSiteInstitucional ServiceType = "SITE_INSTITUCIONAL"
	ServiceLandingPage       ServiceType = "LANDING_PAGE"
	ServiceEcommerce         ServiceType = "ECOMMERCE"
	ServiceSistemaWeb        ServiceType = "SISTEMA_WEB"
	ServiceAplicativo        ServiceType = "APLICATIVO"
	ServiceIdentidadeVisual  ServiceType = "IDENTIDADE_VISUAL"
	ServiceMarketingDigital  ServiceType = "MARKETING_DIGITAL"
)

var serviceLabels = map[ServiceType]string{
	ServiceSiteInstitucional: "Site Institucional",
	ServiceLandingPage:       "Landing Page",
	ServiceEcommerce:         "E-commerce",
	ServiceSistemaWeb:        "Sistema Web",
	ServiceAplicativo:        "Aplicativo",
	ServiceIdentidadeVisual:  "Identidade Visual",
	ServiceMarketingDigital:  "Marketing Digital",
}

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	_, ok := serviceLabels[s]
	return ok
}

// Label returns the human readable name of the service.
func (s ServiceType) Label() string {
	if l, ok := serviceLabels[s]; ok {
		return l
	}
	return string(s)
}

// BriefingStatus is the closed set of briefing states.
type BriefingStatus string

const (
	BriefingDraft     BriefingStatus = "RASCUNHO"
	BriefingSubmitted BriefingStatus = "ENVIADO"
	BriefingInReview  BriefingStatus = "EM_ANALISE"
	BriefingApproved  BriefingStatus = "APROVADO"
	BriefingRejected  BriefingStatus = "REJEITADO"
)

// AllBriefingStatuses lists every briefing state in workflow order.
var AllBriefingStatuses = []BriefingStatus{
	BriefingDraft, BriefingSubmitted, BriefingInReview, BriefingApproved, BriefingRejected,
}

var briefingTransitions = map[BriefingStatus][]BriefingStatus{
	BriefingDraft:     {BriefingSubmitted},
	BriefingSubmitted: {BriefingInReview},
	BriefingInReview:  {BriefingApproved, BriefingRejected},
}

// Valid reports whether s is a known briefing status.
func (s BriefingStatus) Valid() bool {
	for _, v := range AllBriefingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s BriefingStatus) Terminal() bool { return len(briefingTransitions[s]) == 0 }

// CanTransitionTo reports whether the workflow allows s -> next.
func (s BriefingStatus) CanTransitionTo(next BriefingStatus) bool {
	for _, v := range briefingTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Briefing represents a row of the `briefings` table: a client's intake
// request for a service.
//
// Fields:
//
//	UserID          – owning client.
//	SubmittedAt     – set when the draft is sent for review.
//	RejectionReason – only set when Status is REJEITADO.
//	ProjectID       – only set when Status is APROVADO.
type Briefing struct {
	ID              string         `json:"id"`                        // briefings.id
	UserID          string         `json:"userId"`                    // briefings.user_id
	ServiceType     ServiceType    `json:"serviceType"`               // briefings.service_type
	CompanyName     string         `json:"companyName"`               // briefings.company_name
	Description     string         `json:"description"`               // briefings.description
	Budget          *string        `json:"budget,omitempty"`          // briefings.budget (nullable)
	Deadline        *string        `json:"deadline,omitempty"`        // briefings.deadline (nullable)
	Status          BriefingStatus `json:"status"`                    // briefings.status
	SubmittedAt     *time.Time     `json:"submittedAt"`               // briefings.submitted_at (nullable)
	RejectionReason *string        `json:"rejectionReason,omitempty"` // briefings.rejection_reason (nullable)
	ProjectID       *string        `json:"projectId,omitempty"`       // briefings.project_id (nullable)
	CreatedAt       time.Time      `json:"createdAt"`                 // briefings.created_at
	UpdatedAt       time.Time      `json:"updatedAt"`                 // briefings.updated_at
}
