package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of User that may leave the service.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username}
}

// Identity is what a verified session token proves about its holder.
type Identity struct {
	UserID int64
	Email  string
	Role   UserRole
}

func (i Identity) IsAdmin() bool { return i.Role == UserRoleAdmin }
