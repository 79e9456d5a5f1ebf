package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"givto/internal/api"
)

// GraphHandler exposes the API contract over HTTP
type GraphHandler struct {
	server *api.Server
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(server *api.Server) *GraphHandler {
	return &GraphHandler{server: server}
}

// Execute decodes one operation request and writes its response. Operation
// failures are reported in the body with status 200.
func (h *GraphHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			respondWithError(w, http.StatusUnsupportedMediaType, ErrUnsupportedMediaType, "", nil)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req api.Request
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, ErrInvalidRequestBody, "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	resp := h.server.Execute(r.Context(), GetIdentityFromContext(r.Context()), req)
	respondWithJSON(w, http.StatusOK, resp)
}

// Schema serves the contract as a GraphQL schema document
func (h *GraphHandler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, api.SDL())
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter wires the HTTP routes
func NewRouter(graph *GraphHandler, middleware *Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", Health)
	mux.HandleFunc("GET /graphql/schema", graph.Schema)
	mux.HandleFunc("POST /graphql", middleware.RateLimit(graph.Execute))

	return Logging(middleware.Authenticate(mux))
}
