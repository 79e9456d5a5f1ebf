package models

import "time"

// Invite links an invitee to a group until the invitee accepts
type Invite struct {
	ID         string
	GroupID    string
	InviteeID  string
	Email      string
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// IsPending reports whether the invite has not been accepted yet
func (i *Invite) IsPending() bool {
	return i.AcceptedAt == nil
}
