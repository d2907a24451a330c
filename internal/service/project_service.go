package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type projectStore interface {
	GetByID(ctx context.Context, id string) (model.ProjectSummary, error)
	UpdateStatus(ctx context.Context, id string, from, to model.ProjectStatus) error
	Milestones(ctx context.Context, projectID string) ([]model.Milestone, error)
	ToggleMilestone(ctx context.Context, projectID, milestoneID string, at time.Time) (model.Milestone, []model.Milestone, error)
	MilestoneBelongs(ctx context.Context, projectID, milestoneID string) (bool, error)
	AddComment(ctx context.Context, c model.Comment) (model.Comment, error)
	Comments(ctx context.Context, projectID string, includeInternal bool) ([]model.Comment, error)
	List(ctx context.Context, ownerID string, f model.ListFilter) ([]model.ProjectSummary, int64, error)
	Stats(ctx context.Context) (model.ProjectStats, error)
}

type projectFileLister interface {
	ListByProject(ctx context.Context, projectID string) ([]model.File, error)
}

// StatusChange is the result of a project status update.
type StatusChange struct {
	ProjectID string              `json:"projectId"`
	OldStatus model.ProjectStatus `json:"oldStatus"`
	NewStatus model.ProjectStatus `json:"newStatus"`
}

// MilestoneToggle is the result of flipping one milestone.
type MilestoneToggle struct {
	Milestone  model.Milestone   `json:"milestone"`
	Milestones []model.Milestone `json:"milestones"`
	Progress   int               `json:"progress"`
}

// ProjectService serves the client dashboard and the admin project panel.
type ProjectService struct {
	projects projectStore
	files    projectFileLister
	notifier *Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewProjectService(projects projectStore, files projectFileLister, notifier *Notifier, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{projects: projects, files: files, notifier: notifier, log: logger.Named("project"), now: utcNow}
}

// ListOwn returns the caller's projects with their progress.
func (s *ProjectService) ListOwn(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ProjectSummary], error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Page[model.ProjectSummary]{}, err
	}
	items, total, err := s.projects.List(ctx, sess.UserID, f)
	if err != nil {
		return model.Page[model.ProjectSummary]{}, err
	}
	return pageOf(items, total, f), nil
}

// GetOwn returns one of the caller's projects without internal notes.
// Projects of other users are reported as missing.
func (s *ProjectService) GetOwn(ctx context.Context, sess *auth.Session, id string) (model.ProjectDetail, error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.ProjectDetail{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.ProjectDetail{}, err
	}
	if p.UserID != sess.UserID {
		return model.ProjectDetail{}, apperrors.ErrNotFound
	}
	return s.detail(ctx, p, false)
}

func (s *ProjectService) detail(ctx context.Context, p model.ProjectSummary, internal bool) (model.ProjectDetail, error) {
	ms, err := s.projects.Milestones(ctx, p.ID)
	if err != nil {
		return model.ProjectDetail{}, fmt.Errorf("load milestones: %w", err)
	}
	comments, err := s.projects.Comments(ctx, p.ID, internal)
	if err != nil {
		return model.ProjectDetail{}, fmt.Errorf("load comments: %w", err)
	}
	files, err := s.files.ListByProject(ctx, p.ID)
	if err != nil {
		return model.ProjectDetail{}, fmt.Errorf("load files: %w", err)
	}
	return model.ProjectDetail{
		Project:    p.Project,
		OwnerName:  p.OwnerName,
		OwnerEmail: p.OwnerEmail,
		Progress:   model.ProgressOf(ms),
		Milestones: ms,
		Comments:   comments,
		Files:      files,
	}, nil
}

// Comment adds a public comment.  Clients may comment on their own
// projects; an admin comment notifies the project owner.
func (s *ProjectService) Comment(ctx context.Context, sess *auth.Session, id string, in validation.CommentInput) (model.Comment, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return model.Comment{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.Comment{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.Comment{}, err
	}
	if !sess.IsAdmin() && p.UserID != sess.UserID {
		return model.Comment{}, apperrors.ErrNotFound
	}
	if err := s.checkMilestone(ctx, p.ID, in.MilestoneID); err != nil {
		return model.Comment{}, err
	}
	c, err := s.projects.AddComment(ctx, model.Comment{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		MilestoneID: in.MilestoneID,
		UserID:      sess.UserID,
		Content:     in.Content,
	})
	if err != nil {
		return model.Comment{}, err
	}
	if sess.UserID != p.UserID {
		s.notifier.Notify(ctx, p.UserID, model.NotifyNewComment,
			"Novo comentário",
			fmt.Sprintf("Há um novo comentário no projeto %s.", p.Name),
			linkTo("/dashboard/projects/"+p.ID))
	}
	return c, nil
}

func (s *ProjectService) checkMilestone(ctx context.Context, projectID string, milestoneID *string) error {
	if milestoneID == nil {
		return nil
	}
	ok, err := s.projects.MilestoneBelongs(ctx, projectID, *milestoneID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("milestoneId", "does not belong to this project")
	}
	return nil
}

// List returns projects of every client.
func (s *ProjectService) List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ProjectSummary], error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Page[model.ProjectSummary]{}, err
	}
	items, total, err := s.projects.List(ctx, "", f)
	if err != nil {
		return model.Page[model.ProjectSummary]{}, err
	}
	return pageOf(items, total, f), nil
}

// Get returns a project with its internal notes.
func (s *ProjectService) Get(ctx context.Context, sess *auth.Session, id string) (model.ProjectDetail, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.ProjectDetail{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.ProjectDetail{}, err
	}
	return s.detail(ctx, p, true)
}

func (s *ProjectService) Stats(ctx context.Context, sess *auth.Session) (model.ProjectStats, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.ProjectStats{}, err
	}
	return s.projects.Stats(ctx)
}

// UpdateStatus moves a project along the lifecycle table.  Setting the
// current status again is not a transition and is refused as well.
func (s *ProjectService) UpdateStatus(ctx context.Context, sess *auth.Session, id string, in validation.ProjectStatusInput) (StatusChange, error) {
	sess, err := auth.RequireAdmin(sess)
	if err != nil {
		return StatusChange{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return StatusChange{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}
	if !p.Status.CanTransitionTo(in.Status) {
		return StatusChange{}, invalidTransition(p.Status, in.Status)
	}
	if err := s.projects.UpdateStatus(ctx, p.ID, p.Status, in.Status); err != nil {
		return StatusChange{}, err
	}
	s.log.Info("project status changed",
		zap.String("project_id", p.ID),
		zap.String("from", string(p.Status)),
		zap.String("to", string(in.Status)),
		zap.String("by", sess.UserID))
	s.notifier.Notify(ctx, p.UserID, model.NotifyProjectStatus,
		"Status do projeto atualizado",
		fmt.Sprintf("O projeto %s mudou de %s para %s.", p.Name, p.Status, in.Status),
		linkTo("/dashboard/projects/"+p.ID))
	return StatusChange{ProjectID: p.ID, OldStatus: p.Status, NewStatus: in.Status}, nil
}

// ToggleMilestone flips one milestone of a project and returns the
// recomputed progress.  Completing a milestone notifies the owner.
func (s *ProjectService) ToggleMilestone(ctx context.Context, sess *auth.Session, id string, in validation.MilestoneToggleInput) (MilestoneToggle, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return MilestoneToggle{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return MilestoneToggle{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return MilestoneToggle{}, err
	}
	m, all, err := s.projects.ToggleMilestone(ctx, p.ID, in.MilestoneID, s.now())
	if err != nil {
		return MilestoneToggle{}, err
	}
	progress := model.ProgressOf(all)
	if m.Completed {
		s.notifier.Notify(ctx, p.UserID, model.NotifyMilestoneCompleted,
			"Etapa concluída",
			fmt.Sprintf("A etapa %s do projeto %s foi concluída. Progresso: %d%%.", m.Title, p.Name, progress),
			linkTo("/dashboard/projects/"+p.ID))
	}
	return MilestoneToggle{Milestone: m, Milestones: all, Progress: progress}, nil
}

// AddNote stores an internal admin note on a project, optionally bound to
// one of its milestones.  Notes never reach the client.
func (s *ProjectService) AddNote(ctx context.Context, sess *auth.Session, id string, in validation.CommentInput) (model.Comment, error) {
	sess, err := auth.RequireAdmin(sess)
	if err != nil {
		return model.Comment{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.Comment{}, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.Comment{}, err
	}
	if err := s.checkMilestone(ctx, p.ID, in.MilestoneID); err != nil {
		return model.Comment{}, err
	}
	return s.projects.AddComment(ctx, model.Comment{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		MilestoneID: in.MilestoneID,
		UserID:      sess.UserID,
		Content:     in.Content,
		Internal:    true,
	})
}
