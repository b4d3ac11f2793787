package access

import (
	"context"
	"fmt"

	"github.com/tracknest/tracknest/internal/apperror"
)

// Resolver computes a user's access level for a resource. Resolution is
// two database reads worst case: owner lookup, then share lookup only
// when the user is not the owner.
//
// Decisions are computed per request and never cached: revoking a share
// must take effect on the collaborator's very next request.
type Resolver struct {
	repo Repository
}

// NewResolver creates an access resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveProject resolves the user's access to a project. A nonexistent
// project returns not-found; an existing project the user has no
// relationship to returns a Denied decision with no error, leaving the
// 403-vs-404 choice to the caller.
func (r *Resolver) ResolveProject(ctx context.Context, userID, projectID string) (*Decision, error) {
	return r.resolveByProject(ctx, userID, projectID)
}

// ResolveSection resolves access to a section via its owning project.
func (r *Resolver) ResolveSection(ctx context.Context, userID, sectionID string) (*Decision, error) {
	projectID, err := r.repo.SectionProjectID(ctx, sectionID)
	if err != nil {
		return nil, sourceErr("section", err)
	}
	return r.resolveByProject(ctx, userID, projectID)
}

// ResolveTask resolves access to a task via its owning project.
func (r *Resolver) ResolveTask(ctx context.Context, userID, taskID string) (*Decision, error) {
	projectID, err := r.repo.TaskProjectID(ctx, taskID)
	if err != nil {
		return nil, sourceErr("task", err)
	}
	return r.resolveByProject(ctx, userID, projectID)
}

// resolveByProject is the single decision procedure every resource type
// funnels into. Ownership is checked before shares, so an owner never
// pays the share lookup.
func (r *Resolver) resolveByProject(ctx context.Context, userID, projectID string) (*Decision, error) {
	owner, err := r.repo.ProjectOwner(ctx, projectID)
	if err != nil {
		return nil, sourceErr("project", err)
	}

	decision := &Decision{ProjectID: projectID, UserID: userID}

	if owner == userID {
		decision.Level = Owner
		return decision, nil
	}

	shared, err := r.repo.ShareExists(ctx, projectID, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("resolving project access: %w", err))
	}
	if shared {
		decision.Level = SharedCollaborator
	}
	return decision, nil
}

// sourceErr passes through not-found untouched (the resource genuinely
// does not exist, a 404) and wraps everything else as internal.
func sourceErr(kind string, err error) error {
	if apperror.IsKind(err, apperror.KindNotFound) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("resolving %s access: %w", kind, err))
}
