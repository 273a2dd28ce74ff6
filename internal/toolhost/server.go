package toolhost

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/searchkit/redsearch/internal/redsearch"
)

// Server exposes a registry over HTTP: a catalog endpoint and a dispatch
// endpoint per tool.
type Server struct {
	registry *Registry
	log      zerolog.Logger
}

func NewServer(registry *Registry, log zerolog.Logger) *Server {
	return &Server{registry: registry, log: log}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CallResponse wraps a tool result for dispatch responses.
type CallResponse struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /tools/{name}", s.handleCallTool)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Catalog()})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	args, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	result, err := s.registry.Execute(r.Context(), name, args)
	if err != nil {
		s.log.Warn().Str("tool", name).Err(err).Msg("tool call failed")
		status, code := statusForError(err)
		s.writeError(w, status, code, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CallResponse{Tool: name, Result: result})
}

// statusForError maps tool and client errors onto HTTP statuses. Upstream
// failures surface as 502 because this host is a gateway to the search API.
func statusForError(err error) (int, string) {
	if errors.Is(err, ErrUnknownTool) {
		return http.StatusNotFound, "unknown_tool"
	}
	if errors.Is(err, ErrInvalidArgs) {
		return http.StatusBadRequest, "invalid_arguments"
	}
	if kind, ok := redsearch.ErrorKind(err); ok {
		switch kind {
		case redsearch.KindValidation:
			return http.StatusBadRequest, "validation_error"
		case redsearch.KindAuthentication:
			return http.StatusUnauthorized, "authentication_error"
		case redsearch.KindAPI, redsearch.KindConnection:
			return http.StatusBadGateway, "upstream_error"
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
