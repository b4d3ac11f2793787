package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/cache"
)

const (
	maxNameLen  = 200
	maxTitleLen = 500

	// projectListTTL bounds staleness of the cached project listing when
	// an invalidation is lost (e.g. Redis restart).
	projectListTTL = 5 * time.Minute
)

// UserFinder resolves usernames to user ids for sharing. Implemented by
// the auth service; declared here so tracker does not depend on it.
type UserFinder interface {
	FindUserID(ctx context.Context, username string) (string, error)
}

// Service implements the project hierarchy operations. Access decisions
// happen in route middleware before these methods run; the service
// trusts its callers on that and only enforces data validity.
type Service struct {
	repo  Repository
	users UserFinder
	cache cache.Cache
}

// NewService creates the tracker service.
func NewService(repo Repository, users UserFinder, c cache.Cache) *Service {
	return &Service{repo: repo, users: users, cache: c}
}

func projectListKey(userID string) string {
	return "projects:" + userID
}

// --- Projects ---

// CreateProject creates a project owned by the user.
func (s *Service) CreateProject(ctx context.Context, userID string, req ProjectRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("project name is required")
	}
	if len(name) > maxNameLen {
		return nil, apperror.NewValidation(fmt.Sprintf(
			"project name must be at most %d characters", maxNameLen))
	}

	p := &Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: req.Description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, apperror.NewInternal(err)
	}

	s.invalidateProjectList(ctx, userID)
	return p, nil
}

// ListProjects returns the user's owned and shared projects, served from
// cache when possible. Only listings are cached; access decisions always
// hit the database.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]*Project, error) {
	key := projectListKey(userID)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var projects []*Project
		if err := json.Unmarshal([]byte(cached), &projects); err == nil {
			return projects, nil
		}
		// Corrupt entry: drop it and fall through to the database.
		_ = s.cache.Invalidate(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("project list cache read failed", "error", err)
	}

	projects, err := s.repo.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if data, err := json.Marshal(projects); err == nil {
		if err := s.cache.Set(ctx, key, string(data), projectListTTL); err != nil {
			slog.Warn("project list cache write failed", "error", err)
		}
	}
	return projects, nil
}

// GetProject returns a single project.
func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.FindProject(ctx, id)
	if err != nil {
		return nil, passthrough(err)
	}
	return p, nil
}

// UpdateProject renames or redescribes a project.
func (s *Service) UpdateProject(ctx context.Context, id string, req ProjectRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("project name is required")
	}

	p, err := s.repo.FindProject(ctx, id)
	if err != nil {
		return nil, passthrough(err)
	}
	p.Name = name
	p.Description = req.Description

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return nil, passthrough(err)
	}

	s.invalidateProjectList(ctx, p.UserID)
	return p, nil
}

// DeleteProject removes a project and, via cascading foreign keys, all of
// its sections, tasks and shares.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	shares, err := s.repo.ListShares(ctx, id)
	if err != nil {
		return apperror.NewInternal(err)
	}

	p, err := s.repo.FindProject(ctx, id)
	if err != nil {
		return passthrough(err)
	}

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return passthrough(err)
	}

	// The listing of every user who could see the project is now stale.
	s.invalidateProjectList(ctx, p.UserID)
	for _, share := range shares {
		s.invalidateProjectList(ctx, share.UserID)
	}

	slog.Info("project deleted", "project_id", id, "owner_id", p.UserID)
	return nil
}

// --- Sections ---

// CreateSection adds a section to a project.
func (s *Service) CreateSection(ctx context.Context, projectID string, req SectionRequest) (*Section, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("section name is required")
	}
	if len(name) > maxNameLen {
		return nil, apperror.NewValidation(fmt.Sprintf(
			"section name must be at most %d characters", maxNameLen))
	}

	section := &Section{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Position:  req.Position,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return section, nil
}

// ListSections returns a project's sections in display order.
func (s *Service) ListSections(ctx context.Context, projectID string) ([]*Section, error) {
	sections, err := s.repo.ListSections(ctx, projectID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return sections, nil
}

// UpdateSection renames or reorders a section.
func (s *Service) UpdateSection(ctx context.Context, id string, req SectionRequest) (*Section, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("section name is required")
	}

	section, err := s.repo.FindSection(ctx, id)
	if err != nil {
		return nil, passthrough(err)
	}
	section.Name = name
	section.Position = req.Position

	if err := s.repo.UpdateSection(ctx, section); err != nil {
		return nil, passthrough(err)
	}
	return section, nil
}

// DeleteSection removes a section and its tasks.
func (s *Service) DeleteSection(ctx context.Context, id string) error {
	if err := s.repo.DeleteSection(ctx, id); err != nil {
		return passthrough(err)
	}
	return nil
}

// --- Tasks ---

// CreateTask adds a task to a section.
func (s *Service) CreateTask(ctx context.Context, sectionID string, req TaskRequest) (*Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.NewValidation("task title is required")
	}
	if len(title) > maxTitleLen {
		return nil, apperror.NewValidation(fmt.Sprintf(
			"task title must be at most %d characters", maxTitleLen))
	}

	task := &Task{
		ID:        uuid.NewString(),
		SectionID: sectionID,
		Title:     title,
		Body:      req.Body,
		Done:      req.Done,
		Position:  req.Position,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return task, nil
}

// ListTasks returns a section's tasks in display order.
func (s *Service) ListTasks(ctx context.Context, sectionID string) ([]*Task, error) {
	tasks, err := s.repo.ListTasks(ctx, sectionID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return tasks, nil
}

// UpdateTask edits a task, including toggling completion.
func (s *Service) UpdateTask(ctx context.Context, id string, req TaskRequest) (*Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.NewValidation("task title is required")
	}

	task, err := s.repo.FindTask(ctx, id)
	if err != nil {
		return nil, passthrough(err)
	}
	task.Title = title
	task.Body = req.Body
	task.Done = req.Done
	task.Position = req.Position

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, passthrough(err)
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return passthrough(err)
	}
	return nil
}

// --- Shares ---

// ShareProject grants a user collaborator access. Sharing with yourself
// or re-sharing with the same user is rejected.
func (s *Service) ShareProject(ctx context.Context, projectID, ownerID string, req ShareRequest) (*Share, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperror.NewValidation("username is required")
	}

	targetID, err := s.users.FindUserID(ctx, username)
	if err != nil {
		return nil, passthrough(err)
	}
	if targetID == ownerID {
		return nil, apperror.NewValidation("cannot share a project with yourself")
	}

	share := &Share{
		ProjectID: projectID,
		UserID:    targetID,
		Username:  username,
		SharedBy:  ownerID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, passthrough(err)
	}

	// The project now appears in the collaborator's listing.
	s.invalidateProjectList(ctx, targetID)

	slog.Info("project shared",
		"project_id", projectID, "owner_id", ownerID, "target_id", targetID)
	return share, nil
}

// ListShares returns who a project is shared with.
func (s *Service) ListShares(ctx context.Context, projectID string) ([]*Share, error) {
	shares, err := s.repo.ListShares(ctx, projectID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return shares, nil
}

// UnshareProject revokes a collaborator's access. Effective on the
// collaborator's next request: decisions are never cached.
func (s *Service) UnshareProject(ctx context.Context, projectID, targetUserID string) error {
	if err := s.repo.DeleteShare(ctx, projectID, targetUserID); err != nil {
		return passthrough(err)
	}

	s.invalidateProjectList(ctx, targetUserID)

	slog.Info("project unshared", "project_id", projectID, "target_id", targetUserID)
	return nil
}

func (s *Service) invalidateProjectList(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, projectListKey(userID)); err != nil {
		slog.Warn("project list cache invalidation failed",
			"user_id", userID, "error", err)
	}
}

// passthrough keeps typed app errors intact and wraps raw repository
// errors as internal.
func passthrough(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(err)
}
