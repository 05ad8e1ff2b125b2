package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleClient    Role = "client"
	RoleApplicant Role = "applicant"
	RoleEmployee  Role = "employee"
	RoleAdmin     Role = "admin"
)

var Roles = []Role{RoleClient, RoleApplicant, RoleEmployee, RoleAdmin}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanManageInventory reports whether the role may create or edit
// destinations and schedules.
func (r Role) CanManageInventory() bool {
	return r == RoleEmployee || r == RoleAdmin
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk" json:"id"`
	NationalID   string    `bun:"national_id,unique,notnull" json:"national_id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	Phone        string    `bun:"phone,notnull" json:"phone"`
	Role         Role      `bun:"role,notnull" json:"role"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Active       bool      `bun:"active,notnull" json:"active"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Actor is the authenticated caller of a service operation. Identity and
// role come from the external auth collaborator and are trusted as given.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
