package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tracknest/tracknest/internal/apperror"
)

const mysqlDuplicateEntry = 1062

// Repository persists the project hierarchy.
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	FindProject(ctx context.Context, id string) (*Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error

	CreateSection(ctx context.Context, s *Section) error
	FindSection(ctx context.Context, id string) (*Section, error)
	ListSections(ctx context.Context, projectID string) ([]*Section, error)
	UpdateSection(ctx context.Context, s *Section) error
	DeleteSection(ctx context.Context, id string) error

	CreateTask(ctx context.Context, t *Task) error
	FindTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, sectionID string) ([]*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error

	CreateShare(ctx context.Context, s *Share) error
	ListShares(ctx context.Context, projectID string) ([]*Share, error)
	DeleteShare(ctx context.Context, projectID, userID string) error
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MySQL-backed tracker repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

// --- Projects ---

func (r *mysqlRepository) CreateProject(ctx context.Context, p *Project) error {
	query := `INSERT INTO projects (id, user_id, name, description) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.Name, p.Description); err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *mysqlRepository) FindProject(ctx context.Context, id string) (*Project, error) {
	query := `SELECT id, user_id, name, COALESCE(description, ''), created_at, updated_at
	          FROM projects WHERE id = ?`

	var p Project
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("project not found")
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return &p, nil
}

// ListProjectsForUser returns owned projects plus projects shared with
// the user, the latter flagged as shared.
func (r *mysqlRepository) ListProjectsForUser(ctx context.Context, userID string) ([]*Project, error) {
	query := `SELECT p.id, p.user_id, p.name, COALESCE(p.description, ''),
	                 p.created_at, p.updated_at, p.user_id != ? AS shared
	          FROM projects p
	          LEFT JOIN project_shares ps ON ps.project_id = p.id AND ps.user_id = ?
	          WHERE p.user_id = ? OR ps.user_id IS NOT NULL
	          ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description,
			&p.CreatedAt, &p.UpdatedAt, &p.Shared); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *mysqlRepository) UpdateProject(ctx context.Context, p *Project) error {
	query := `UPDATE projects SET name = ?, description = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("project not found")
	}
	return nil
}

func (r *mysqlRepository) DeleteProject(ctx context.Context, id string) error {
	query := `DELETE FROM projects WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("project not found")
	}
	return nil
}

// --- Sections ---

func (r *mysqlRepository) CreateSection(ctx context.Context, s *Section) error {
	query := `INSERT INTO sections (id, project_id, name, position) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, s.ID, s.ProjectID, s.Name, s.Position); err != nil {
		return fmt.Errorf("inserting section: %w", err)
	}
	return nil
}

func (r *mysqlRepository) FindSection(ctx context.Context, id string) (*Section, error) {
	query := `SELECT id, project_id, name, position, created_at FROM sections WHERE id = ?`

	var s Section
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.ProjectID, &s.Name, &s.Position, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("section not found")
		}
		return nil, fmt.Errorf("scanning section: %w", err)
	}
	return &s, nil
}

func (r *mysqlRepository) ListSections(ctx context.Context, projectID string) ([]*Section, error) {
	query := `SELECT id, project_id, name, position, created_at
	          FROM sections WHERE project_id = ? ORDER BY position, created_at`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	defer rows.Close()

	var sections []*Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Position, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sections = append(sections, &s)
	}
	return sections, rows.Err()
}

func (r *mysqlRepository) UpdateSection(ctx context.Context, s *Section) error {
	query := `UPDATE sections SET name = ?, position = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, s.Name, s.Position, s.ID)
	if err != nil {
		return fmt.Errorf("updating section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("section not found")
	}
	return nil
}

func (r *mysqlRepository) DeleteSection(ctx context.Context, id string) error {
	query := `DELETE FROM sections WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("section not found")
	}
	return nil
}

// --- Tasks ---

func (r *mysqlRepository) CreateTask(ctx context.Context, t *Task) error {
	query := `INSERT INTO tasks (id, section_id, title, body, done, position)
	          VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.SectionID, t.Title, t.Body, t.Done, t.Position); err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *mysqlRepository) FindTask(ctx context.Context, id string) (*Task, error) {
	query := `SELECT id, section_id, title, COALESCE(body, ''), done, position,
	                 created_at, updated_at
	          FROM tasks WHERE id = ?`

	var t Task
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.SectionID, &t.Title, &t.Body, &t.Done, &t.Position,
			&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("task not found")
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return &t, nil
}

func (r *mysqlRepository) ListTasks(ctx context.Context, sectionID string) ([]*Task, error) {
	query := `SELECT id, section_id, title, COALESCE(body, ''), done, position,
	                 created_at, updated_at
	          FROM tasks WHERE section_id = ? ORDER BY position, created_at`

	rows, err := r.db.QueryContext(ctx, query, sectionID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.SectionID, &t.Title, &t.Body, &t.Done,
			&t.Position, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *mysqlRepository) UpdateTask(ctx context.Context, t *Task) error {
	query := `UPDATE tasks SET title = ?, body = ?, done = ?, position = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, t.Title, t.Body, t.Done, t.Position, t.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("task not found")
	}
	return nil
}

func (r *mysqlRepository) DeleteTask(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("task not found")
	}
	return nil
}

// --- Shares ---

func (r *mysqlRepository) CreateShare(ctx context.Context, s *Share) error {
	query := `INSERT INTO project_shares (project_id, user_id, shared_by) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, s.ProjectID, s.UserID, s.SharedBy)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("project already shared with this user")
		}
		return fmt.Errorf("inserting share: %w", err)
	}
	return nil
}

func (r *mysqlRepository) ListShares(ctx context.Context, projectID string) ([]*Share, error) {
	query := `SELECT ps.project_id, ps.user_id, u.username, ps.shared_by, ps.created_at
	          FROM project_shares ps JOIN users u ON u.id = ps.user_id
	          WHERE ps.project_id = ? ORDER BY ps.created_at`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		var s Share
		if err := rows.Scan(&s.ProjectID, &s.UserID, &s.Username, &s.SharedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		shares = append(shares, &s)
	}
	return shares, rows.Err()
}

func (r *mysqlRepository) DeleteShare(ctx context.Context, projectID, userID string) error {
	query := `DELETE FROM project_shares WHERE project_id = ? AND user_id = ?`

	res, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("deleting share: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("share not found")
	}
	return nil
}
