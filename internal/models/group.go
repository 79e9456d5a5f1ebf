package models

import "time"

// Group is a gift-exchange circle
type Group struct {
	ID        string
	Slug      string
	Name      string
	CreatorID string
	Options   GroupOptions
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupOptions holds optional settings of a group
type GroupOptions struct {
	MatchDate *time.Time
}

// GroupMember is one edge between a user and a group
type GroupMember struct {
	GroupID  string
	UserID   string
	JoinedAt time.Time
}
