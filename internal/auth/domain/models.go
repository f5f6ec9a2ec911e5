package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const RoleAdmin = "ADMIN"

type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"column:username;not null;uniqueIndex" json:"username"`
	PasswordHash string       `gorm:"column:password_hash;not null" json:"-"`
	Role         string       `gorm:"column:role;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
)

type LoginRequest struct {
	Username string
	Password string
}

type LoginResult struct {
	Token string
	User  User
}

// Identity is the authenticated caller extracted from a bearer token. The
// intake path only needs an opaque uploaded-by value.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (Identity, error)
}
