package models

import "time"

const MaxRoleNameLen = 50

type Role struct {
	ID          int64
	Name        string
	CreatedDate time.Time
	UpdatedDate time.Time
}

func NewRole(name string, now time.Time) *Role {
	return &Role{
		Name:        name,
		CreatedDate: now,
		UpdatedDate: now,
	}
}

// UserRole is a row of the user_roles join table.
type UserRole struct {
	ID          int64
	UserID      int64
	RoleID      int64
	CreatedDate time.Time
	UpdatedDate time.Time
}

func NewUserRole(userID, roleID int64, now time.Time) *UserRole {
	return &UserRole{
		UserID:      userID,
		RoleID:      roleID,
		CreatedDate: now,
		UpdatedDate: now,
	}
}

// RoleSummary is the slice of a role exposed alongside a user.
type RoleSummary struct {
	ID   int64
	Name string
}

// UserWithRoles pairs a user with every role assigned through user_roles.
type UserWithRoles struct {
	User  *User
	Roles []RoleSummary
}
