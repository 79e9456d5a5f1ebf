package models

import "time"

// User is a participant identified by email address
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput is the caller-supplied description of a participant
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity is the user bound to a request after login code verification
type Identity struct {
	UserID string
	Email  string
}
