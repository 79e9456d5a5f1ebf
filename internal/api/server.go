package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"givto/internal/models"
	"givto/internal/repository"
	"givto/internal/security"
	"givto/internal/service"
)

// RequestContext is built once per operation and handed to every resolver
type RequestContext struct {
	Context   context.Context
	Identity  *models.Identity
	Variables Variables
	Store     *repository.Store
}

type handlerFunc func(rc *RequestContext) (any, error)

// Dependencies are the components the API surface dispatches to
type Dependencies struct {
	Store  *repository.Store
	Auth   *service.AuthService
	Groups *service.GroupService
	Signer *security.SessionSigner
}

// Options configures a Server
type Options struct {
	// OperationTimeout bounds every operation, storage calls included
	OperationTimeout time.Duration
	Debug            bool
}

// Request is one operation invocation
type Request struct {
	Operation string    `json:"operation"`
	Variables Variables `json:"variables"`
}

// Response carries the operation result keyed by operation name, plus any errors
type Response struct {
	Data   map[string]any `json:"data"`
	Errors []Error        `json:"errors,omitempty"`
}

// Server executes contract operations through an explicit dispatch table
type Server struct {
	deps     Dependencies
	handlers map[string]handlerFunc
	timeout  time.Duration
	debug    bool
}

// NewServer builds the dispatch table and verifies it against Contract
func NewServer(deps Dependencies, opts Options) (*Server, error) {
	if deps.Store == nil || deps.Auth == nil || deps.Groups == nil || deps.Signer == nil {
		return nil, errors.New("api server requires store, auth, groups and signer")
	}
	timeout := opts.OperationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{deps: deps, timeout: timeout, debug: opts.Debug}
	s.handlers = map[string]handlerFunc{
		"getGroup":        s.getGroup,
		"getLoginCode":    s.getLoginCode,
		"getCurrentUser":  s.getCurrentUser,
		"createGroup":     s.createGroup,
		"setGroupName":    s.setGroupName,
		"createLoginCode": s.createLoginCode,
		"verifyLoginCode": s.verifyLoginCode,
		"acceptInvite":    s.acceptInvite,
		"setMatchDate":    s.setMatchDate,
	}
	if err := validateDispatch(s.handlers); err != nil {
		return nil, err
	}
	return s, nil
}

// Execute runs one operation on behalf of identity, which may be nil
func (s *Server) Execute(ctx context.Context, identity *models.Identity, req Request) Response {
	op, ok := lookupOperation(req.Operation)
	if !ok {
		return Response{
			Data:   map[string]any{},
			Errors: []Error{{Message: fmt.Sprintf("unknown operation %q", req.Operation), Code: CodeValidation, Field: "operation"}},
		}
	}
	fail := func(err error) Response {
		return Response{Data: map[string]any{op.Name: nil}, Errors: []Error{toError(op.Name, err)}}
	}

	if req.Variables == nil {
		req.Variables = Variables{}
	}
	if err := checkVariables(op, req.Variables); err != nil {
		return fail(err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rc := &RequestContext{
		Context:   opCtx,
		Identity:  identity,
		Variables: req.Variables,
		Store:     s.deps.Store,
	}

	start := time.Now()
	result, err := s.handlers[op.Name](rc)
	if s.debug {
		log.Printf("[DEBUG] %s %s took %s (err=%v)", op.Kind, op.Name, time.Since(start), err)
	}
	if err != nil {
		return fail(err)
	}
	return Response{Data: map[string]any{op.Name: result}}
}
