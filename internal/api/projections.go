package api

import (
	"log"

	"givto/internal/credentials"
	"givto/internal/models"
)

// UserSummary is a user without its relations
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GroupSummary is a group without its relations
type GroupSummary struct {
	ID      string      `json:"id"`
	Slug    string      `json:"slug"`
	Name    string      `json:"name"`
	Options OptionsNode `json:"options"`
}

// OptionsNode carries a group's optional settings
type OptionsNode struct {
	MatchDate *Timestamp `json:"matchDate"`
}

// GroupNode is a group with its users and creator resolved
type GroupNode struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Name    string        `json:"name"`
	Users   []UserSummary `json:"users"`
	Creator *UserSummary  `json:"creator"`
	Options OptionsNode   `json:"options"`
}

// UserNode is a user with its groups and pending invites resolved
type UserNode struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Groups  []GroupSummary `json:"groups"`
	Invites []InviteNode   `json:"invites"`
}

// InviteNode is an invite with its invitee and group resolved
type InviteNode struct {
	ID    string        `json:"id"`
	User  *UserSummary  `json:"user"`
	Group *GroupSummary `json:"group"`
}

// LoginCodeNode describes a pending login code to its holder
type LoginCodeNode struct {
	Code string       `json:"code"`
	User *UserSummary `json:"user"`
	Exp  Timestamp    `json:"exp"`
}

// SessionNode is returned by a successful code verification
type SessionNode struct {
	Token     string    `json:"token"`
	ExpiresAt Timestamp `json:"expiresAt"`
	User      *UserNode `json:"user"`
}

func summarizeUser(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func summarizeGroup(g *models.Group) *GroupSummary {
	if g == nil {
		return nil
	}
	return &GroupSummary{
		ID:      g.ID,
		Slug:    g.Slug,
		Name:    g.Name,
		Options: OptionsNode{MatchDate: TimestampPtr(g.Options.MatchDate)},
	}
}

// projectGroup resolves a group's users and creator. Fields whose lookup
// fails resolve to null instead of failing the operation.
func projectGroup(rc *RequestContext, g *models.Group) *GroupNode {
	if g == nil {
		return nil
	}
	node := &GroupNode{
		ID:      g.ID,
		Slug:    g.Slug,
		Name:    g.Name,
		Options: OptionsNode{MatchDate: TimestampPtr(g.Options.MatchDate)},
	}

	members, err := rc.Store.Users.ListByGroup(rc.Context, g.ID)
	if err != nil {
		log.Printf("Failed to resolve users of group %s: %v", g.ID, err)
	} else {
		node.Users = make([]UserSummary, 0, len(members))
		for i := range members {
			node.Users = append(node.Users, *summarizeUser(&members[i]))
			if members[i].ID == g.CreatorID {
				node.Creator = summarizeUser(&members[i])
			}
		}
	}

	if node.Creator == nil {
		creator, err := rc.Store.Users.GetByID(rc.Context, g.CreatorID)
		if err != nil {
			log.Printf("Failed to resolve creator of group %s: %v", g.ID, err)
		}
		node.Creator = summarizeUser(creator)
	}
	return node
}

// projectUser resolves a user's groups and pending invites
func projectUser(rc *RequestContext, u *models.User) *UserNode {
	if u == nil {
		return nil
	}
	node := &UserNode{ID: u.ID, Name: u.Name, Email: u.Email}

	groups, err := rc.Store.Groups.ListForUser(rc.Context, u.ID)
	if err != nil {
		log.Printf("Failed to resolve groups of user %s: %v", u.ID, err)
	} else {
		node.Groups = make([]GroupSummary, 0, len(groups))
		for i := range groups {
			node.Groups = append(node.Groups, *summarizeGroup(&groups[i]))
		}
	}

	invites, err := rc.Store.Invites.ListPendingForUser(rc.Context, u.ID)
	if err != nil {
		log.Printf("Failed to resolve invites of user %s: %v", u.ID, err)
	} else {
		node.Invites = make([]InviteNode, 0, len(invites))
		for i := range invites {
			node.Invites = append(node.Invites, *projectInvite(rc, &invites[i], u))
		}
	}
	return node
}

// projectInvite resolves an invite's invitee and group. invitee may be
// passed when already loaded.
func projectInvite(rc *RequestContext, inv *models.Invite, invitee *models.User) *InviteNode {
	node := &InviteNode{ID: inv.ID}

	if invitee == nil || invitee.ID != inv.InviteeID {
		var err error
		invitee, err = rc.Store.Users.GetByID(rc.Context, inv.InviteeID)
		if err != nil {
			log.Printf("Failed to resolve invitee of invite %s: %v", inv.ID, err)
		}
	}
	node.User = summarizeUser(invitee)

	group, err := rc.Store.Groups.GetByID(rc.Context, inv.GroupID)
	if err != nil {
		log.Printf("Failed to resolve group of invite %s: %v", inv.ID, err)
	}
	node.Group = summarizeGroup(group)
	return node
}

// projectLoginCode describes a pending code. The code echoed back is the one
// the caller submitted, in display form.
func projectLoginCode(rc *RequestContext, submitted string, lc *models.LoginCode) *LoginCodeNode {
	if lc == nil {
		return nil
	}
	node := &LoginCodeNode{
		Code: credentials.FormatLoginCode(submitted),
		Exp:  NewTimestamp(lc.ExpiresAt),
	}
	user, err := rc.Store.Users.GetByEmail(rc.Context, lc.Email)
	if err != nil {
		log.Printf("Failed to resolve user of login code: %v", err)
	}
	node.User = summarizeUser(user)
	return node
}
