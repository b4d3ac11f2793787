package tracker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/cache"
)

// mockTrackerRepo implements Repository with overridable function fields.
// Only the methods a test exercises need to be set.
type mockTrackerRepo struct {
	Repository

	createProjectFn       func(ctx context.Context, p *Project) error
	findProjectFn         func(ctx context.Context, id string) (*Project, error)
	listProjectsForUserFn func(ctx context.Context, userID string) ([]*Project, error)
	deleteProjectFn       func(ctx context.Context, id string) error
	createShareFn         func(ctx context.Context, s *Share) error
	listSharesFn          func(ctx context.Context, projectID string) ([]*Share, error)
	deleteShareFn         func(ctx context.Context, projectID, userID string) error
}

func (m *mockTrackerRepo) CreateProject(ctx context.Context, p *Project) error {
	return m.createProjectFn(ctx, p)
}

func (m *mockTrackerRepo) FindProject(ctx context.Context, id string) (*Project, error) {
	return m.findProjectFn(ctx, id)
}

func (m *mockTrackerRepo) ListProjectsForUser(ctx context.Context, userID string) ([]*Project, error) {
	return m.listProjectsForUserFn(ctx, userID)
}

func (m *mockTrackerRepo) DeleteProject(ctx context.Context, id string) error {
	return m.deleteProjectFn(ctx, id)
}

func (m *mockTrackerRepo) CreateShare(ctx context.Context, s *Share) error {
	return m.createShareFn(ctx, s)
}

func (m *mockTrackerRepo) ListShares(ctx context.Context, projectID string) ([]*Share, error) {
	if m.listSharesFn != nil {
		return m.listSharesFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTrackerRepo) DeleteShare(ctx context.Context, projectID, userID string) error {
	return m.deleteShareFn(ctx, projectID, userID)
}

// mockUserFinder implements UserFinder over a username -> id map.
type mockUserFinder struct {
	users map[string]string
}

func (m *mockUserFinder) FindUserID(ctx context.Context, username string) (string, error) {
	id, ok := m.users[username]
	if !ok {
		return "", apperror.NewNotFound("user not found")
	}
	return id, nil
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewRedis(rdb, "test")
}

func TestListProjects_CachesListing(t *testing.T) {
	dbHits := 0
	repo := &mockTrackerRepo{
		listProjectsForUserFn: func(ctx context.Context, userID string) ([]*Project, error) {
			dbHits++
			return []*Project{{ID: "proj-1", UserID: userID, Name: "inbox"}}, nil
		},
	}
	svc := NewService(repo, &mockUserFinder{}, newTestCache(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		projects, err := svc.ListProjects(ctx, "alice")
		if err != nil {
			t.Fatalf("ListProjects: %v", err)
		}
		if len(projects) != 1 || projects[0].ID != "proj-1" {
			t.Fatalf("got %+v", projects)
		}
	}

	if dbHits != 1 {
		t.Errorf("database hit %d times, want 1 (cache miss only)", dbHits)
	}
}

func TestCreateProject_InvalidatesListing(t *testing.T) {
	var projects []*Project
	repo := &mockTrackerRepo{
		createProjectFn: func(ctx context.Context, p *Project) error {
			projects = append(projects, p)
			return nil
		},
		listProjectsForUserFn: func(ctx context.Context, userID string) ([]*Project, error) {
			return projects, nil
		},
	}
	svc := NewService(repo, &mockUserFinder{}, newTestCache(t))
	ctx := context.Background()

	if _, err := svc.CreateProject(ctx, "alice", ProjectRequest{Name: "first"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	got, err := svc.ListProjects(ctx, "alice")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d projects, want 1", len(got))
	}

	// A second create must evict the now-stale cached listing.
	if _, err := svc.CreateProject(ctx, "alice", ProjectRequest{Name: "second"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	got, err = svc.ListProjects(ctx, "alice")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d projects after create, want 2 (stale cache served?)", len(got))
	}
}

func TestCreateProject_Validation(t *testing.T) {
	svc := NewService(&mockTrackerRepo{}, &mockUserFinder{}, newTestCache(t))

	_, err := svc.CreateProject(context.Background(), "alice", ProjectRequest{Name: "   "})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("got %v, want validation_error", err)
	}
}

func TestShareProject(t *testing.T) {
	var created *Share
	repo := &mockTrackerRepo{
		createShareFn: func(ctx context.Context, s *Share) error {
			created = s
			return nil
		},
	}
	finder := &mockUserFinder{users: map[string]string{"bob": "bob-id"}}
	svc := NewService(repo, finder, newTestCache(t))

	share, err := svc.ShareProject(context.Background(), "proj-1", "alice-id",
		ShareRequest{Username: "bob"})
	if err != nil {
		t.Fatalf("ShareProject: %v", err)
	}
	if created == nil || created.UserID != "bob-id" || created.SharedBy != "alice-id" {
		t.Errorf("got %+v", created)
	}
	if share.ProjectID != "proj-1" {
		t.Errorf("got project %q, want proj-1", share.ProjectID)
	}
}

func TestShareProject_WithSelf(t *testing.T) {
	finder := &mockUserFinder{users: map[string]string{"alice": "alice-id"}}
	svc := NewService(&mockTrackerRepo{}, finder, newTestCache(t))

	_, err := svc.ShareProject(context.Background(), "proj-1", "alice-id",
		ShareRequest{Username: "alice"})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("got %v, want validation_error", err)
	}
}

func TestShareProject_UnknownUser(t *testing.T) {
	svc := NewService(&mockTrackerRepo{}, &mockUserFinder{}, newTestCache(t))

	_, err := svc.ShareProject(context.Background(), "proj-1", "alice-id",
		ShareRequest{Username: "nobody"})
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("got %v, want not_found", err)
	}
}

func TestDeleteProject_InvalidatesAllViewers(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	repo := &mockTrackerRepo{
		findProjectFn: func(ctx context.Context, id string) (*Project, error) {
			return &Project{ID: id, UserID: "alice-id", Name: "inbox"}, nil
		},
		deleteProjectFn: func(ctx context.Context, id string) error {
			return nil
		},
		listSharesFn: func(ctx context.Context, projectID string) ([]*Share, error) {
			return []*Share{{ProjectID: projectID, UserID: "bob-id"}}, nil
		},
	}
	svc := NewService(repo, &mockUserFinder{}, c)

	// Warm both listings.
	if err := c.Set(ctx, projectListKey("alice-id"), "[]", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, projectListKey("bob-id"), "[]", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := svc.DeleteProject(ctx, "proj-1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	for _, user := range []string{"alice-id", "bob-id"} {
		if _, err := c.Get(ctx, projectListKey(user)); err != cache.ErrMiss {
			t.Errorf("listing for %s not invalidated", user)
		}
	}
}
