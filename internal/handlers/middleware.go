package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"givto/internal/models"
	"givto/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const IdentityContextKey ContextKey = "identity"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	signer      *security.SessionSigner
	rateLimiter *security.RateLimiter
	debug       bool
}

// NewMiddleware creates a new middleware instance. rateLimiter may be nil.
func NewMiddleware(signer *security.SessionSigner, rateLimiter *security.RateLimiter, debug bool) *Middleware {
	return &Middleware{
		signer:      signer,
		rateLimiter: rateLimiter,
		debug:       debug,
	}
}

// Authenticate places the identity carried by a bearer token in the request
// context. Requests without a valid token continue anonymously.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.signer.Parse(token)
		if err != nil {
			if m.debug {
				log.Printf("[DEBUG] Ignoring session token from %s: %v", security.GetClientIP(r), err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimiter != nil {
			ip := security.GetClientIP(r)
			if !m.rateLimiter.Allow(ip) {
				log.Printf("Rate limit exceeded for %s", ip)
				respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
				return
			}
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetIdentityFromContext retrieves the authenticated identity, or nil
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
