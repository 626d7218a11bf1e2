package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avelkov/task-manager/internal/model"
)

// TeamRepo persists teams and their memberships.
type TeamRepo struct{ DB *sql.DB }

func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{DB: db} }

// ErrTeamExists is returned when a team name is already taken.
var ErrTeamExists = errors.New("team name already exists")

// Create inserts a team and its first member (the creator, as OWNER) in a
// single transaction so a team can never exist without an owner.
func (r *TeamRepo) Create(ctx context.Context, name string, ownerUserID uint64) (model.Team, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Team{}, err
	}
	defer tx.Rollback() // no-op after commit

	res, err := tx.ExecContext(ctx, "INSERT INTO teams (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return model.Team{}, ErrTeamExists
		}
		return model.Team{}, err
	}
	teamID, err := res.LastInsertId()
	if err != nil {
		return model.Team{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO team_members (team_id, user_id, role) VALUES (?,?,?)",
		teamID, ownerUserID, model.RoleOwner); err != nil {
		return model.Team{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Team{}, err
	}
	return r.GetByID(ctx, uint64(teamID))
}

// GetByID loads a team together with its members and their usernames.
func (r *TeamRepo) GetByID(ctx context.Context, id uint64) (model.Team, error) {
	var t model.Team
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM teams WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, ErrNotFound
	}
	if err != nil {
		return model.Team{}, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.id, m.team_id, m.user_id, u.username, m.role
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY m.id`, id)
	if err != nil {
		return model.Team{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Username, &m.Role); err != nil {
			return model.Team{}, err
		}
		t.Members = append(t.Members, m)
	}
	return t, rows.Err()
}

// IsMember reports whether a user belongs to a team.
func (r *TeamRepo) IsMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM team_members WHERE team_id=? AND user_id=?",
		teamID, userID).Scan(&n)
	return n > 0, err
}
