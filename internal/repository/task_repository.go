package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avelkov/task-manager/internal/model"
)

// TaskRepo provides CRUD operations for tasks.  All timestamp fields are
// stored in UTC.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskColumns = "id, title, description, due_date, is_completed, user_id, team_id, assigned_to"

// GetAll returns every task.
func (r *TaskRepo) GetAll(ctx context.Context) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// GetByID returns one task or ErrNotFound.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	var t model.Task
	var teamID, assignedTo sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.IsCompleted, &t.UserID, &teamID, &assignedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	applyNullableRefs(&t, teamID, assignedTo)
	return t, nil
}

// Create inserts a task and populates its generated ID.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tasks (title, description, due_date, is_completed, user_id, team_id, assigned_to) VALUES (?,?,?,?,?,?,?)",
		t.Title, t.Description, t.DueDate, t.IsCompleted, t.UserID, t.TeamID, t.AssignedTo)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Update overwrites a task row.  Returns ErrNotFound when no row matched.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET title=?, description=?, due_date=?, is_completed=?, team_id=?, assigned_to=? WHERE id=?",
		t.Title, t.Description, t.DueDate, t.IsCompleted, t.TeamID, t.AssignedTo, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 rows for a no-change update too; confirm existence.
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a task.  Returns ErrNotFound when no row matched.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVisibleToUser returns the user's own tasks plus all tasks belonging
// to teams the user is a member of.
func (r *TaskRepo) ListVisibleToUser(ctx context.Context, userID uint64) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT t.id, t.title, t.description, t.due_date, t.is_completed, t.user_id, t.team_id, t.assigned_to
		 FROM tasks t
		 LEFT JOIN team_members m ON m.team_id = t.team_id
		 WHERE t.user_id = ? OR m.user_id = ?
		 ORDER BY t.id`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		var teamID, assignedTo sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.IsCompleted,
			&t.UserID, &teamID, &assignedTo); err != nil {
			return nil, err
		}
		applyNullableRefs(&t, teamID, assignedTo)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func applyNullableRefs(t *model.Task, teamID, assignedTo sql.NullInt64) {
	if teamID.Valid {
		v := uint64(teamID.Int64)
		t.TeamID = &v
	}
	if assignedTo.Valid {
		v := uint64(assignedTo.Int64)
		t.AssignedTo = &v
	}
}
