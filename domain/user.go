package domain

import (
	"context"
	"time"
)

// User is an account. Password and Remember only live in memory; the database stores their hashes.
type User struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"size:50;notNull;uniqueIndex"`
	Email    string `json:"email" gorm:"size:100;notNull;uniqueIndex"`
	Nickname string `json:"nickname" gorm:"size:50"`

	Password     string `json:"password,omitempty" gorm:"-"`
	PasswordHash string `json:"-" gorm:"notNull"`
	Remember     string `json:"-" gorm:"-"`
	RememberHash string `json:"-" gorm:"notNull;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserService interface {
	ByID(ctx context.Context, id int64) (*User, error)
	ByRemember(ctx context.Context, token string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	MakeRememberToken() (string, error)
}
