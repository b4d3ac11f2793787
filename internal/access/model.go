// Package access resolves what an authenticated user may do to a project
// and everything nested under it. One resolver handles projects, sections
// and tasks alike: each resource type only differs in how its owning
// project id is looked up.
package access

// Level is the outcome of an access resolution.
type Level int

const (
	// Denied means the project exists but the user has no relationship
	// to it. Maps to 403.
	Denied Level = iota

	// SharedCollaborator means the user was granted access via a share.
	// Full read/write on the project's contents, but not ownership
	// powers (delete, share management).
	SharedCollaborator

	// Owner means the user created the project.
	Owner
)

func (l Level) String() string {
	switch l {
	case Owner:
		return "owner"
	case SharedCollaborator:
		return "collaborator"
	default:
		return "denied"
	}
}

// Decision is a resolved access check: the level plus the project the
// resource belongs to, so handlers do not re-derive it.
type Decision struct {
	Level     Level
	ProjectID string
	UserID    string
}

// CanWrite reports whether the user may create, modify or delete
// resources inside the project.
func (d *Decision) CanWrite() bool {
	return d.Level == Owner || d.Level == SharedCollaborator
}

// IsOwner reports whether the user holds ownership powers over the
// project: deleting it and managing its shares.
func (d *Decision) IsOwner() bool {
	return d.Level == Owner
}
