// Package tracker implements the project hierarchy: projects, their
// sections, the tasks inside them, and project sharing.
package tracker

import "time"

// Project is a top-level container owned by exactly one user.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Shared marks projects the user can access via a share rather than
	// ownership. Set on listing only.
	Shared bool `json:"shared,omitempty"`
}

// Section is an ordered grouping of tasks within a project.
type Section struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a single work item within a section.
type Task struct {
	ID        string    `json:"id"`
	SectionID string    `json:"section_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Done      bool      `json:"done"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Share records that a project was shared with a user.
type Share struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	SharedBy  string    `json:"shared_by"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Request DTOs ---

// ProjectRequest is the body for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SectionRequest is the body for creating or updating a section.
type SectionRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TaskRequest is the body for creating or updating a task.
type TaskRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Done     bool   `json:"done"`
	Position int    `json:"position"`
}

// ShareRequest is the body for sharing a project. The target is named by
// username, not id, since that is what collaborators know.
type ShareRequest struct {
	Username string `json:"username"`
}
