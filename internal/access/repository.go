package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tracknest/tracknest/internal/apperror"
)

// Repository answers the three questions resolution needs: who owns a
// project, whether a share exists, and which project a nested resource
// belongs to.
type Repository interface {
	ProjectOwner(ctx context.Context, projectID string) (string, error)
	ShareExists(ctx context.Context, projectID, userID string) (bool, error)
	SectionProjectID(ctx context.Context, sectionID string) (string, error)
	TaskProjectID(ctx context.Context, taskID string) (string, error)
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MySQL-backed access repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

func (r *mysqlRepository) ProjectOwner(ctx context.Context, projectID string) (string, error) {
	query := `SELECT user_id FROM projects WHERE id = ?`

	var owner string
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NewNotFound("project not found")
		}
		return "", fmt.Errorf("looking up project owner: %w", err)
	}
	return owner, nil
}

func (r *mysqlRepository) ShareExists(ctx context.Context, projectID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM project_shares WHERE project_id = ? AND user_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking project share: %w", err)
	}
	return exists, nil
}

func (r *mysqlRepository) SectionProjectID(ctx context.Context, sectionID string) (string, error) {
	query := `SELECT project_id FROM sections WHERE id = ?`

	var projectID string
	err := r.db.QueryRowContext(ctx, query, sectionID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NewNotFound("section not found")
		}
		return "", fmt.Errorf("looking up section project: %w", err)
	}
	return projectID, nil
}

func (r *mysqlRepository) TaskProjectID(ctx context.Context, taskID string) (string, error) {
	query := `SELECT s.project_id
	          FROM tasks t JOIN sections s ON s.id = t.section_id
	          WHERE t.id = ?`

	var projectID string
	err := r.db.QueryRowContext(ctx, query, taskID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NewNotFound("task not found")
		}
		return "", fmt.Errorf("looking up task project: %w", err)
	}
	return projectID, nil
}
