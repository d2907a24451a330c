package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/repository"
	"github.com/iliyamo/agency-portal/internal/utils"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func clientSession(id string) *auth.Session {
	return &auth.Session{UserID: id, Email: id + "@example.com", Role: model.RoleClient, EmailVerified: true}
}

func adminSession() *auth.Session {
	return &auth.Session{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin, EmailVerified: true}
}

func superAdminSession() *auth.Session {
	return &auth.Session{UserID: "root-1", Email: "root@example.com", Role: model.RoleSuperAdmin, EmailVerified: true}
}

// ---- users ----

type fakeUsers struct {
	byID        map[string]model.User
	rehashCalls int
}

func newFakeUsers(us ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]model.User{}}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u model.User, password string, cost int) (model.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.PasswordHash = hash
	u.IsActive = true
	u.CreatedAt = testNow
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperrors.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, apperrors.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	u := f.byID[id]
	u.PasswordHash = hash
	f.byID[id] = u
	f.rehashCalls++
	return nil
}

func (f *fakeUsers) Deactivate(_ context.Context, id string) (bool, error) {
	u, ok := f.byID[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if !u.IsActive {
		return false, nil
	}
	u.IsActive = false
	f.byID[id] = u
	return true, nil
}

func (f *fakeUsers) SetRole(_ context.Context, id string, role model.Role) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Role = role
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) clients() []model.ClientSummary {
	out := []model.ClientSummary{}
	for _, u := range f.byID {
		if u.Role == model.RoleClient {
			out = append(out, model.ClientSummary{ID: u.ID, Email: u.Email, Name: u.Name, Active: u.IsActive})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUsers) ListClients(_ context.Context, _ model.ListFilter) ([]model.ClientSummary, int64, error) {
	c := f.clients()
	return c, int64(len(c)), nil
}

func (f *fakeUsers) ExportClients(_ context.Context, _ model.ListFilter) ([]model.ClientSummary, error) {
	return f.clients(), nil
}

func activeUser(id string, role model.Role, password string) model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return model.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "User " + id,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
}

// ---- tokens ----

type refreshRow struct {
	userID  string
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	users         *fakeUsers
	refresh       map[string]*refreshRow
	verification  map[string]model.VerificationToken
	revokedAllFor []string
}

func newFakeTokens(users *fakeUsers) *fakeTokens {
	return &fakeTokens{
		users:        users,
		refresh:      map[string]*refreshRow{},
		verification: map[string]model.VerificationToken{},
	}
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	f.refresh[hash] = &refreshRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	r, ok := f.refresh[hash]
	if !ok || r.revoked || !time.Now().Before(r.exp) {
		return "", apperrors.ErrNotFound
	}
	return r.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	r, ok := f.refresh[hash]
	if !ok || r.revoked {
		return apperrors.ErrNotFound
	}
	r.revoked = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	for _, r := range f.refresh {
		if r.userID == userID {
			r.revoked = true
		}
	}
	f.revokedAllFor = append(f.revokedAllFor, userID)
	return nil
}

func (f *fakeTokens) StoreVerification(_ context.Context, t model.VerificationToken) error {
	f.verification[t.TokenHash] = t
	return nil
}

func (f *fakeTokens) FindVerification(_ context.Context, hash string, kind model.TokenKind) (model.VerificationToken, error) {
	t, ok := f.verification[hash]
	if !ok || t.Kind != kind {
		return model.VerificationToken{}, apperrors.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) ConsumeEmailVerification(_ context.Context, tokenID, userID string, at time.Time) error {
	for h, t := range f.verification {
		if t.ID == tokenID && t.Kind == model.TokenEmailVerification {
			delete(f.verification, h)
			u := f.users.byID[userID]
			if u.EmailVerifiedAt == nil {
				u.EmailVerifiedAt = &at
			}
			f.users.byID[userID] = u
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeTokens) DeleteVerification(_ context.Context, id string) error {
	for h, t := range f.verification {
		if t.ID == id {
			delete(f.verification, h)
		}
	}
	return nil
}

// ---- notifications ----

type fakeNotifications struct {
	items     []model.Notification
	prefs     map[string]model.NotificationPreference
	createErr error
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{prefs: map[string]model.NotificationPreference{}}
}

func prefKey(userID string, t model.NotificationType) string { return userID + "|" + string(t) }

func (f *fakeNotifications) Create(_ context.Context, n model.Notification) (model.Notification, error) {
	if f.createErr != nil {
		return model.Notification{}, f.createErr
	}
	n.CreatedAt = testNow
	f.items = append(f.items, n)
	return n, nil
}

func (f *fakeNotifications) Preference(_ context.Context, userID string, t model.NotificationType) (model.NotificationPreference, error) {
	if p, ok := f.prefs[prefKey(userID, t)]; ok {
		return p, nil
	}
	return model.DefaultPreference(userID, t), nil
}

func (f *fakeNotifications) ListForUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, it := range f.items {
		if it.UserID == userID && !it.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, userID string) error {
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items[i].Read = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].Read {
			f.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) Preferences(ctx context.Context, userID string) ([]model.NotificationPreference, error) {
	out := make([]model.NotificationPreference, 0, len(model.AllNotificationTypes))
	for _, t := range model.AllNotificationTypes {
		p, _ := f.Preference(ctx, userID, t)
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeNotifications) SavePreferences(_ context.Context, userID string, prefs []model.NotificationPreference) error {
	for _, p := range prefs {
		p.UserID = userID
		f.prefs[prefKey(userID, p.Type)] = p
	}
	return nil
}

func (f *fakeNotifications) count(userID string, t model.NotificationType) int {
	n := 0
	for _, it := range f.items {
		if it.UserID == userID && it.Type == t {
			n++
		}
	}
	return n
}

// ---- publisher ----

type publishedEvent struct {
	queue   string
	payload any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, queueName string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{queue: queueName, payload: payload})
	return nil
}

func (f *fakePublisher) on(queueName string) []any {
	var out []any
	for _, e := range f.events {
		if e.queue == queueName {
			out = append(out, e.payload)
		}
	}
	return out
}

// ---- briefings & projects ----

type fakeBriefings struct {
	items      map[string]model.Briefing
	projects   *fakeProjects
	approveErr error
	writes     int
}

func newFakeBriefings(projects *fakeProjects, bs ...model.Briefing) *fakeBriefings {
	f := &fakeBriefings{items: map[string]model.Briefing{}, projects: projects}
	for _, b := range bs {
		f.items[b.ID] = b
	}
	return f
}

func (f *fakeBriefings) Create(_ context.Context, b model.Briefing) (model.Briefing, error) {
	b.Status = model.BriefingDraft
	b.CreatedAt = testNow
	f.items[b.ID] = b
	f.writes++
	return b, nil
}

func (f *fakeBriefings) GetByID(_ context.Context, id string) (model.Briefing, error) {
	b, ok := f.items[id]
	if !ok {
		return model.Briefing{}, apperrors.ErrNotFound
	}
	return b, nil
}

func (f *fakeBriefings) GetForOwner(ctx context.Context, id, userID string) (model.Briefing, error) {
	b, err := f.GetByID(ctx, id)
	if err != nil || b.UserID != userID {
		return model.Briefing{}, apperrors.ErrNotFound
	}
	return b, nil
}

func (f *fakeBriefings) UpdateDraft(_ context.Context, b model.Briefing) (model.Briefing, error) {
	cur, ok := f.items[b.ID]
	if !ok || cur.UserID != b.UserID || cur.Status != model.BriefingDraft {
		return model.Briefing{}, repository.ErrStaleState
	}
	f.items[b.ID] = b
	f.writes++
	return b, nil
}

func (f *fakeBriefings) Transition(_ context.Context, id string, from, to model.BriefingStatus, submittedAt *time.Time) (model.Briefing, error) {
	b, ok := f.items[id]
	if !ok || b.Status != from {
		return model.Briefing{}, repository.ErrStaleState
	}
	b.Status = to
	if submittedAt != nil {
		b.SubmittedAt = submittedAt
	}
	f.items[id] = b
	f.writes++
	return b, nil
}

func (f *fakeBriefings) Reject(_ context.Context, id string, from model.BriefingStatus, reason string) (model.Briefing, error) {
	b, ok := f.items[id]
	if !ok || b.Status != from {
		return model.Briefing{}, repository.ErrStaleState
	}
	b.Status = model.BriefingRejected
	b.RejectionReason = &reason
	f.items[id] = b
	f.writes++
	return b, nil
}

// Approve mirrors the store transaction: on any error nothing changes.
func (f *fakeBriefings) Approve(_ context.Context, id string, from model.BriefingStatus, p model.Project, ms []model.Milestone) (model.Project, error) {
	b, ok := f.items[id]
	if !ok {
		return model.Project{}, apperrors.ErrNotFound
	}
	if b.Status != from {
		return model.Project{}, repository.ErrStaleState
	}
	if f.approveErr != nil {
		return model.Project{}, f.approveErr
	}
	p.BriefingID = &id
	f.projects.put(model.ProjectSummary{Project: p}, ms)
	b.Status = model.BriefingApproved
	b.ProjectID = &p.ID
	f.items[id] = b
	f.writes++
	return p, nil
}

func (f *fakeBriefings) ListForOwner(_ context.Context, userID string, _ model.ListFilter) ([]model.Briefing, int64, error) {
	var out []model.Briefing
	for _, b := range f.items {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeBriefings) List(_ context.Context, _ model.ListFilter) ([]model.BriefingSummary, int64, error) {
	var out []model.BriefingSummary
	for _, b := range f.items {
		out = append(out, model.BriefingSummary{Briefing: b})
	}
	return out, int64(len(out)), nil
}

type fakeProjects struct {
	items         map[string]model.ProjectSummary
	milestones    map[string][]model.Milestone
	comments      []model.Comment
	statusUpdates int
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{items: map[string]model.ProjectSummary{}, milestones: map[string][]model.Milestone{}}
}

func (f *fakeProjects) put(p model.ProjectSummary, ms []model.Milestone) {
	f.items[p.ID] = p
	f.milestones[p.ID] = append([]model.Milestone(nil), ms...)
}

// seed adds a project owned by ownerID with the default milestones, the
// first `done` of them completed.
func (f *fakeProjects) seed(id, ownerID string, status model.ProjectStatus, done int) {
	ms := make([]model.Milestone, 0, model.MilestoneCount)
	for i, title := range model.DefaultMilestoneTitles {
		ms = append(ms, model.Milestone{
			ID:           uuid.NewString(),
			ProjectID:    id,
			Title:        title,
			DisplayOrder: i + 1,
			Completed:    i < done,
		})
	}
	f.put(model.ProjectSummary{
		Project: model.Project{ID: id, UserID: ownerID, Name: "Projeto " + id, Status: status},
	}, ms)
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (model.ProjectSummary, error) {
	p, ok := f.items[id]
	if !ok {
		return model.ProjectSummary{}, apperrors.ErrNotFound
	}
	p.Progress = model.ProgressOf(f.milestones[id])
	return p, nil
}

func (f *fakeProjects) UpdateStatus(_ context.Context, id string, from, to model.ProjectStatus) error {
	p, ok := f.items[id]
	if !ok || p.Status != from {
		return repository.ErrStaleState
	}
	p.Status = to
	f.items[id] = p
	f.statusUpdates++
	return nil
}

func (f *fakeProjects) Milestones(_ context.Context, projectID string) ([]model.Milestone, error) {
	return append([]model.Milestone{}, f.milestones[projectID]...), nil
}

func (f *fakeProjects) ToggleMilestone(_ context.Context, projectID, milestoneID string, at time.Time) (model.Milestone, []model.Milestone, error) {
	ms := f.milestones[projectID]
	for i := range ms {
		if ms[i].ID == milestoneID {
			ms[i].Completed = !ms[i].Completed
			if ms[i].Completed {
				t := at
				ms[i].CompletedAt = &t
			} else {
				ms[i].CompletedAt = nil
			}
			return ms[i], append([]model.Milestone{}, ms...), nil
		}
	}
	return model.Milestone{}, nil, apperrors.ErrNotFound
}

func (f *fakeProjects) MilestoneBelongs(_ context.Context, projectID, milestoneID string) (bool, error) {
	for _, m := range f.milestones[projectID] {
		if m.ID == milestoneID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProjects) AddComment(_ context.Context, c model.Comment) (model.Comment, error) {
	c.CreatedAt = testNow
	f.comments = append(f.comments, c)
	return c, nil
}

func (f *fakeProjects) Comments(_ context.Context, projectID string, includeInternal bool) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.ProjectID == projectID && (includeInternal || !c.Internal) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeProjects) List(_ context.Context, ownerID string, _ model.ListFilter) ([]model.ProjectSummary, int64, error) {
	var out []model.ProjectSummary
	for _, p := range f.items {
		if ownerID == "" || p.UserID == ownerID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeProjects) Stats(_ context.Context) (model.ProjectStats, error) {
	s := model.ProjectStats{ByStatus: model.ZeroProjectCounts()}
	for _, p := range f.items {
		s.Total++
		s.ByStatus[p.Status]++
	}
	return s, nil
}

// ---- files ----

type fakeFiles struct {
	items          map[string]model.File
	projects       *fakeProjects
	briefingOwners map[string]string // project id -> briefing owner
	createErr      error
}

func newFakeFiles(projects *fakeProjects) *fakeFiles {
	return &fakeFiles{items: map[string]model.File{}, projects: projects, briefingOwners: map[string]string{}}
}

func (f *fakeFiles) Create(_ context.Context, file model.File) (model.File, error) {
	if f.createErr != nil {
		return model.File{}, f.createErr
	}
	file.CreatedAt = testNow
	f.items[file.ID] = file
	return file, nil
}

func (f *fakeFiles) GetAccess(_ context.Context, id string) (model.FileAccess, error) {
	file, ok := f.items[id]
	if !ok {
		return model.FileAccess{}, apperrors.ErrNotFound
	}
	a := model.FileAccess{File: file}
	if file.ProjectID != nil {
		if p, ok := f.projects.items[*file.ProjectID]; ok {
			owner := p.UserID
			a.ProjectOwnerID = &owner
		}
		if b, ok := f.briefingOwners[*file.ProjectID]; ok {
			a.BriefingOwnerID = &b
		}
	}
	return a, nil
}

func (f *fakeFiles) ListByProject(_ context.Context, projectID string) ([]model.File, error) {
	out := []model.File{}
	for _, file := range f.items {
		if file.ProjectID != nil && *file.ProjectID == projectID {
			out = append(out, file)
		}
	}
	return out, nil
}

// ---- plans ----

type fakePlans struct {
	items map[string]model.PricingPlan
}

func newFakePlans(ps ...model.PricingPlan) *fakePlans {
	f := &fakePlans{items: map[string]model.PricingPlan{}}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakePlans) List(_ context.Context, activeOnly bool) ([]model.PricingPlan, error) {
	out := []model.PricingPlan{}
	for _, p := range f.items {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakePlans) GetByID(_ context.Context, id string) (model.PricingPlan, error) {
	p, ok := f.items[id]
	if !ok {
		return model.PricingPlan{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (f *fakePlans) ServiceTypeTaken(_ context.Context, st model.ServiceType, excludeID string) (bool, error) {
	for _, p := range f.items {
		if p.ServiceType == st && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePlans) Create(_ context.Context, p model.PricingPlan) (model.PricingPlan, error) {
	p.DisplayOrder = len(f.items) + 1
	f.items[p.ID] = p
	return p, nil
}

func (f *fakePlans) Update(_ context.Context, p model.PricingPlan) (model.PricingPlan, error) {
	cur, ok := f.items[p.ID]
	if !ok {
		return model.PricingPlan{}, apperrors.ErrNotFound
	}
	p.DisplayOrder = cur.DisplayOrder
	f.items[p.ID] = p
	return p, nil
}

func (f *fakePlans) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// Reorder checks every id before writing anything.
func (f *fakePlans) Reorder(_ context.Context, ids []string) error {
	for _, id := range ids {
		if _, ok := f.items[id]; !ok {
			return fmt.Errorf("%w: plan %s", apperrors.ErrNotFound, id)
		}
	}
	if len(ids) != len(f.items) {
		return repository.ErrPartialOrder
	}
	for i, id := range ids {
		p := f.items[id]
		p.DisplayOrder = i + 1
		f.items[id] = p
	}
	return nil
}

type fakePurger struct{ paths []string }

func (f *fakePurger) Purge(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return nil
}
