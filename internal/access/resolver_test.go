package access

import (
	"context"
	"testing"

	"github.com/tracknest/tracknest/internal/apperror"
)

// mockRepo implements Repository over fixed project data.
type mockRepo struct {
	owners   map[string]string          // project id -> owner id
	shares   map[string]map[string]bool // project id -> user id -> shared
	sections map[string]string          // section id -> project id
	tasks    map[string]string          // task id -> project id

	shareLookups int
}

func (m *mockRepo) ProjectOwner(ctx context.Context, projectID string) (string, error) {
	owner, ok := m.owners[projectID]
	if !ok {
		return "", apperror.NewNotFound("project not found")
	}
	return owner, nil
}

func (m *mockRepo) ShareExists(ctx context.Context, projectID, userID string) (bool, error) {
	m.shareLookups++
	return m.shares[projectID][userID], nil
}

func (m *mockRepo) SectionProjectID(ctx context.Context, sectionID string) (string, error) {
	projectID, ok := m.sections[sectionID]
	if !ok {
		return "", apperror.NewNotFound("section not found")
	}
	return projectID, nil
}

func (m *mockRepo) TaskProjectID(ctx context.Context, taskID string) (string, error) {
	projectID, ok := m.tasks[taskID]
	if !ok {
		return "", apperror.NewNotFound("task not found")
	}
	return projectID, nil
}

func newTestRepo() *mockRepo {
	return &mockRepo{
		owners: map[string]string{"proj-1": "alice"},
		shares: map[string]map[string]bool{
			"proj-1": {"bob": true},
		},
		sections: map[string]string{"sec-1": "proj-1"},
		tasks:    map[string]string{"task-1": "proj-1"},
	}
}

func TestResolveProject_Owner(t *testing.T) {
	repo := newTestRepo()
	r := NewResolver(repo)

	d, err := r.ResolveProject(context.Background(), "alice", "proj-1")
	if err != nil {
		t.Fatalf("ResolveProject: %v", err)
	}
	if d.Level != Owner {
		t.Errorf("got %v, want owner", d.Level)
	}
	if !d.IsOwner() || !d.CanWrite() {
		t.Error("owner should hold both write and ownership powers")
	}
	// Ownership short-circuits the share lookup.
	if repo.shareLookups != 0 {
		t.Errorf("owner resolution hit the share table %d times", repo.shareLookups)
	}
}

func TestResolveProject_Collaborator(t *testing.T) {
	r := NewResolver(newTestRepo())

	d, err := r.ResolveProject(context.Background(), "bob", "proj-1")
	if err != nil {
		t.Fatalf("ResolveProject: %v", err)
	}
	if d.Level != SharedCollaborator {
		t.Errorf("got %v, want collaborator", d.Level)
	}
	if !d.CanWrite() {
		t.Error("collaborator should have write access")
	}
	if d.IsOwner() {
		t.Error("collaborator must not hold ownership powers")
	}
}

func TestResolveProject_Denied(t *testing.T) {
	r := NewResolver(newTestRepo())

	d, err := r.ResolveProject(context.Background(), "mallory", "proj-1")
	if err != nil {
		t.Fatalf("ResolveProject: %v", err)
	}
	if d.Level != Denied {
		t.Errorf("got %v, want denied", d.Level)
	}
	if d.CanWrite() {
		t.Error("stranger must not have write access")
	}
}

func TestResolveProject_NotFound(t *testing.T) {
	r := NewResolver(newTestRepo())

	_, err := r.ResolveProject(context.Background(), "alice", "missing")
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("got %v, want not_found", err)
	}
}

// Sections and tasks resolve through the same decision procedure as
// their project: same user, same project, same answer at every level.
func TestResolveNestedResources(t *testing.T) {
	r := NewResolver(newTestRepo())
	ctx := context.Background()

	users := []struct {
		name string
		want Level
	}{
		{"alice", Owner},
		{"bob", SharedCollaborator},
		{"mallory", Denied},
	}
	for _, u := range users {
		t.Run(u.name, func(t *testing.T) {
			project, err := r.ResolveProject(ctx, u.name, "proj-1")
			if err != nil {
				t.Fatalf("ResolveProject: %v", err)
			}
			section, err := r.ResolveSection(ctx, u.name, "sec-1")
			if err != nil {
				t.Fatalf("ResolveSection: %v", err)
			}
			task, err := r.ResolveTask(ctx, u.name, "task-1")
			if err != nil {
				t.Fatalf("ResolveTask: %v", err)
			}

			for _, d := range []*Decision{project, section, task} {
				if d.Level != u.want {
					t.Errorf("got %v, want %v", d.Level, u.want)
				}
				if d.ProjectID != "proj-1" {
					t.Errorf("decision carries project %q, want proj-1", d.ProjectID)
				}
			}
		})
	}
}

func TestResolveNested_NotFound(t *testing.T) {
	r := NewResolver(newTestRepo())
	ctx := context.Background()

	if _, err := r.ResolveSection(ctx, "alice", "missing"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("section: got %v, want not_found", err)
	}
	if _, err := r.ResolveTask(ctx, "alice", "missing"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("task: got %v, want not_found", err)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Owner, "owner"},
		{SharedCollaborator, "collaborator"},
		{Denied, "denied"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
