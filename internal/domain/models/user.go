package models

import "time"

// Role роль пользователя в системе
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleArtist Role = "artist"
	RoleViewer Role = "viewer"
)

// Valid проверяет, что роль входит в список известных
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleArtist, RoleViewer:
		return true
	}
	return false
}

// User представляет пользователя
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PassHash     []byte     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	OTPHash      []byte     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
