package model

import "time"

// Team member roles as stored in team_members.role.
const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

// Team groups users for shared task ownership.  The creating user becomes
// the first member with the OWNER role.
type Team struct {
	ID        uint64       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	Members   []TeamMember `json:"members,omitempty"`
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	ID       uint64 `json:"id"`
	TeamID   uint64 `json:"team_id"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
