package domain

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Satisfies reports whether a principal holding r may pass a gate requiring
// required. Unknown roles never pass.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleUser:
		return r == RoleUser || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Name         *string   `gorm:"size:64" json:"name"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// NormalizeEmail is applied on every write and lookup so that uniqueness is
// case-insensitive.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// UserRepository returns (nil, nil) when a lookup finds nothing.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListAll(ctx context.Context) ([]User, error)
}
