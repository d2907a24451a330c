package model

import "time"

// ProjectSummary is one row of a project list: the project, its owner and
// the progress derived from its milestones.
type ProjectSummary struct {
	Project
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
	Progress   int    `json:"progress"`
}

// BriefingSummary is one row of the admin briefing list.
type BriefingSummary struct {
	Briefing
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
}

// ClientSummary is one row of the admin client list and export.
type ClientSummary struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Active           bool       `json:"active"`
	EmailVerifiedAt  *time.Time `json:"emailVerifiedAt"`
	MarketingConsent bool       `json:"marketingConsent"`
	ProjectCount     int        `json:"projectCount"`
	BriefingCount    int        `json:"briefingCount"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ProjectStats aggregates projects by status. Every status is present in
// ByStatus, zero-filled when no project carries it.
type ProjectStats struct {
	Total           int64                   `json:"total"`
	ByStatus        map[ProjectStatus]int64 `json:"byStatus"`
	AverageProgress float64                 `json:"averageProgress"`
}

// ClientStats counts CLIENT accounts.
type ClientStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Verified int64 `json:"verified"`
}

// FileStats counts stored files and their cumulative size.
type FileStats struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Metrics is the admin dashboard snapshot.
type Metrics struct {
	Clients       ClientStats              `json:"clients"`
	Briefings     map[BriefingStatus]int64 `json:"briefings"`
	PendingReview int64                    `json:"pendingReview"`
	Projects      ProjectStats             `json:"projects"`
	Files         FileStats                `json:"files"`
	GeneratedAt   time.Time                `json:"generatedAt"`
}

// ZeroProjectCounts returns a map with every project status set to zero.
func ZeroProjectCounts() map[ProjectStatus]int64 {
	m := make(map[ProjectStatus]int64, len(AllProjectStatuses))
	for _, s := range AllProjectStatuses {
		m[s] = 0
	}
	return m
}

// ZeroBriefingCounts returns a map with every briefing status set to zero.
func ZeroBriefingCounts() map[BriefingStatus]int64 {
	m := make(map[BriefingStatus]int64, len(AllBriefingStatuses))
	for _, s := range AllBriefingStatuses {
		m[s] = 0
	}
	return m
}
