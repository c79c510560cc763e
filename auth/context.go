// Package auth carries the signed in user through a request's context.
package auth

import (
	"context"

	"poetryHub/domain"
)

const (
	userKey privateKey = "user"
)

type privateKey string

// SetUser returns a copy of ctx carrying user.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the signed in user, or nil for anonymous requests.
func GetUser(ctx context.Context) *domain.User {
	if temp := ctx.Value(userKey); temp != nil {
		if user, ok := temp.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// UserID returns the id of the signed in user, or 0 for anonymous requests.
func UserID(ctx context.Context) int64 {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return 0
}
