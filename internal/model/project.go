package model

import (
	"math"
	"time"
)

// MilestoneCount is the fixed number of milestones per project.  Each one is
// worth an equal share of the progress.
const MilestoneCount = 4

// DefaultMilestoneTitles are used when a project is created from an approved
// briefing, in display order.
var DefaultMilestoneTitles = [MilestoneCount]string{
	"Planejamento",
	"Design",
	"Desenvolvimento",
	"Entrega",
}

// ProjectStatus is the closed set of project states.
type ProjectStatus string

const (
	ProjectAwaitingApproval ProjectStatus = "AGUARDANDO_APROVACAO"
	ProjectActive           ProjectStatus = "ATIVO"
	ProjectPaused           ProjectStatus = "PAUSADO"
	ProjectCompleted        ProjectStatus = "CONCLUIDO"
	ProjectCancelled        ProjectStatus = "CANCELADO"
	ProjectArchived         ProjectStatus = "ARQUIVADO"
)

// AllProjectStatuses lists every project state in lifecycle order.
var AllProjectStatuses = []ProjectStatus{
	ProjectAwaitingApproval, ProjectActive, ProjectPaused,
	ProjectCompleted, ProjectCancelled, ProjectArchived,
}

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectAwaitingApproval: {ProjectActive, ProjectCancelled},
	ProjectActive:           {ProjectPaused, ProjectCompleted, ProjectCancelled},
	ProjectPaused:           {ProjectActive, ProjectCancelled},
	ProjectCompleted:        {ProjectArchived},
	ProjectCancelled:        {ProjectArchived},
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	for _, v := range AllProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an admin may move a project from s to next.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, v := range projectTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Project represents a row of the `projects` table.  Progress is derived from
// the milestones and is not stored.
type Project struct {
	ID          string        `json:"id"`                   // projects.id
	UserID      string        `json:"userId"`               // projects.user_id
	BriefingID  *string       `json:"briefingId,omitempty"` // projects.briefing_id (nullable)
	Name        string        `json:"name"`                 // projects.name
	Description string        `json:"description"`          // projects.description
	Status      ProjectStatus `json:"status"`               // projects.status
	CreatedAt   time.Time     `json:"createdAt"`            // projects.created_at
	UpdatedAt   time.Time     `json:"updatedAt"`            // projects.updated_at
}

// Milestone represents a row of `project_milestones`.
type Milestone struct {
	ID           string     `json:"id"`           // project_milestones.id
	ProjectID    string     `json:"projectId"`    // project_milestones.project_id
	Title        string     `json:"title"`        // project_milestones.title
	DisplayOrder int        `json:"displayOrder"` // project_milestones.display_order
	Completed    bool       `json:"completed"`    // project_milestones.completed
	CompletedAt  *time.Time `json:"completedAt"`  // project_milestones.completed_at (nullable)
}

// CalculateProgress converts a completed milestone count into a percentage.
// Every milestone is worth 100/MilestoneCount percent regardless of how many
// milestones the project really has, and the result is clamped to [0,100].
func CalculateProgress(completed int) int {
	p := int(math.Round(float64(completed) / MilestoneCount * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ProgressOf counts the completed milestones and returns the progress.
func ProgressOf(ms []Milestone) int {
	n := 0
	for _, m := range ms {
		if m.Completed {
			n++
		}
	}
	return CalculateProgress(n)
}

// Comment represents a row of `project_comments`.  Internal comments are
// admin notes and are never shown to clients.
type Comment struct {
	ID          string    `json:"id"`                    // project_comments.id
	ProjectID   string    `json:"projectId"`             // project_comments.project_id
	MilestoneID *string   `json:"milestoneId,omitempty"` // project_comments.milestone_id (nullable)
	UserID      string    `json:"userId"`                // project_comments.user_id
	AuthorName  string    `json:"authorName"`            // users.name (joined)
	Content     string    `json:"content"`               // project_comments.content
	Internal    bool      `json:"internal"`              // project_comments.is_internal
	CreatedAt   time.Time `json:"createdAt"`             // project_comments.created_at
}

// File represents a row of `project_files`.  StoragePath is relative to the
// configured upload directory and is never exposed to clients.
type File struct {
	ID          string    `json:"id"`                  // project_files.id
	ProjectID   *string   `json:"projectId,omitempty"` // project_files.project_id (nullable)
	UserID      string    `json:"userId"`              // project_files.user_id
	Filename    string    `json:"filename"`            // project_files.filename
	MimeType    string    `json:"mimeType"`            // project_files.mime_type
	FileSize    int64     `json:"fileSize"`            // project_files.file_size
	StoragePath string    `json:"-"`                   // project_files.storage_path
	CreatedAt   time.Time `json:"createdAt"`           // project_files.created_at
}

// FileAccess is a file joined with the owners that may read it.
type FileAccess struct {
	File
	ProjectOwnerID  *string // projects.user_id
	BriefingOwnerID *string // briefings.user_id via projects.briefing_id
}

// ReadableBy reports whether userID is tied to the file as the uploader, the
// project owner or the owner of the briefing the project came from.  Admin
// access is decided by the caller's guard, not here.
func (f FileAccess) ReadableBy(userID string) bool {
	if userID == "" {
		return false
	}
	if f.UserID == userID {
		return true
	}
	if f.ProjectOwnerID != nil && *f.ProjectOwnerID == userID {
		return true
	}
	return f.BriefingOwnerID != nil && *f.BriefingOwnerID == userID
}

// ProjectDetail aggregates a project with its children for detail views.
type ProjectDetail struct {
	Project
	OwnerName  string      `json:"ownerName"`
	OwnerEmail string      `json:"ownerEmail"`
	Progress   int         `json:"progress"`
	Milestones []Milestone `json:"milestones"`
	Comments   []Comment   `json:"comments"`
	Files      []File      `json:"files"`
}
