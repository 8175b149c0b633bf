// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 100
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

type UserID string

type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// An empty name falls back to "Anonymous".
func NewUser(id string, name string) (*User, error) {
	id = strings.TrimSpace(id)
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if name == "" {
		name = "Anonymous"
	}
	if r := []rune(name); len(r) > MaxUsernameLen {
		name = string(r[:MaxUsernameLen])
	}
	return &User{ID: UserID(id), Name: name}, nil
}

// Friend is one edge of the friend graph as seen from the owner.
type Friend struct {
	ID             UserID
	CanSeeLocation bool
}
