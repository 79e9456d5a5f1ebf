package api

import (
	"fmt"
)

func (s *Server) getGroup(rc *RequestContext) (any, error) {
	slug, err := rc.Variables.String("slug")
	if err != nil {
		return nil, err
	}
	group, err := s.deps.Groups.GetGroup(rc.Context, rc.Identity, slug)
	if err != nil {
		return nil, err
	}
	return projectGroup(rc, group), nil
}

// getLoginCode needs no session: holding the code is the credential, and an
// invalid code resolves to null
func (s *Server) getLoginCode(rc *RequestContext) (any, error) {
	code, err := rc.Variables.String("code")
	if err != nil {
		return nil, err
	}
	record, err := s.deps.Auth.LookupLoginCode(rc.Context, code)
	if err != nil {
		return nil, err
	}
	return projectLoginCode(rc, code, record), nil
}

func (s *Server) getCurrentUser(rc *RequestContext) (any, error) {
	user, err := s.deps.Auth.CurrentUser(rc.Context, rc.Identity)
	if err != nil {
		return nil, err
	}
	return projectUser(rc, user), nil
}

func (s *Server) createGroup(rc *RequestContext) (any, error) {
	creator, err := rc.Variables.UserInput("creator")
	if err != nil {
		return nil, err
	}
	invitees, err := rc.Variables.UserInputs("invitees")
	if err != nil {
		return nil, err
	}
	name, err := rc.Variables.OptionalString("name")
	if err != nil {
		return nil, err
	}

	group, err := s.deps.Groups.CreateGroup(rc.Context, rc.Identity, creator, invitees, name)
	if err != nil {
		return nil, err
	}
	return projectGroup(rc, group), nil
}

func (s *Server) setGroupName(rc *RequestContext) (any, error) {
	name, err := rc.Variables.String("name")
	if err != nil {
		return nil, err
	}
	slug, err := rc.Variables.OptionalString("slug")
	if err != nil {
		return nil, err
	}

	group, err := s.deps.Groups.SetGroupName(rc.Context, rc.Identity, name, slug)
	if err != nil {
		return nil, err
	}
	return projectGroup(rc, group), nil
}

// createLoginCode answers true for every well-formed email, known or not
func (s *Server) createLoginCode(rc *RequestContext) (any, error) {
	email, err := rc.Variables.String("email")
	if err != nil {
		return nil, err
	}
	name, err := rc.Variables.OptionalString("name")
	if err != nil {
		return nil, err
	}

	var displayName string
	if name != nil {
		displayName = *name
	}
	if err := s.deps.Auth.IssueLoginCode(rc.Context, email, displayName); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) verifyLoginCode(rc *RequestContext) (any, error) {
	code, err := rc.Variables.String("code")
	if err != nil {
		return nil, err
	}

	identity, err := s.deps.Auth.VerifyLoginCode(rc.Context, code)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.deps.Signer.Issue(*identity)
	if err != nil {
		return nil, err
	}

	// The new session is the identity for the rest of this operation
	rc.Identity = identity
	user, err := s.deps.Auth.CurrentUser(rc.Context, identity)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s vanished after login", identity.UserID)
	}

	return &SessionNode{
		Token:     token,
		ExpiresAt: NewTimestamp(expiresAt),
		User:      projectUser(rc, user),
	}, nil
}

func (s *Server) acceptInvite(rc *RequestContext) (any, error) {
	slug, err := rc.Variables.String("slug")
	if err != nil {
		return nil, err
	}
	group, err := s.deps.Groups.AcceptInvite(rc.Context, rc.Identity, slug)
	if err != nil {
		return nil, err
	}
	return projectGroup(rc, group), nil
}

func (s *Server) setMatchDate(rc *RequestContext) (any, error) {
	slug, err := rc.Variables.String("slug")
	if err != nil {
		return nil, err
	}
	matchDate, err := rc.Variables.Timestamp("matchDate")
	if err != nil {
		return nil, err
	}
	group, err := s.deps.Groups.SetMatchDate(rc.Context, rc.Identity, slug, matchDate)
	if err != nil {
		return nil, err
	}
	return projectGroup(rc, group), nil
}
