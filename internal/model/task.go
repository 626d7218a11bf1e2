package model

import "time"

// Task is a unit of work owned by a user and optionally shared with a team.
// Personal tasks have a nil TeamID; team tasks are visible to every member
// of the team and may be assigned to a specific member.
type Task struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	IsCompleted bool      `json:"is_completed"`
	UserID      uint64    `json:"user_id"`
	TeamID      *uint64   `json:"team_id,omitempty"`
	AssignedTo  *uint64   `json:"assigned_to,omitempty"`
}

// IsTeamTask reports whether the task belongs to a team.
func (t *Task) IsTeamTask() bool { return t.TeamID != nil }
