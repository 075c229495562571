package api

import (
	"net/http"

	"github.com/chicogong/pattern-planner/pkg/auth"
)

// Routes builds the HTTP handler. authn may be nil to serve every route
// without authentication; /health never requires it.
func (s *Server) Routes(authn *auth.Middleware) http.Handler {
	api := []Middleware{
		LoggingMiddleware(s.logger),
		RecoveryMiddleware,
		CORSMiddleware,
	}
	if authn != nil {
		api = append(api, AuthMiddleware(authn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", Chain(s.HandleHealth, LoggingMiddleware(s.logger)))

	mux.HandleFunc("/api/v1/jobs", Chain(s.handleJobs, api...))
	mux.HandleFunc("/api/v1/jobs/{id}", Chain(s.handleJobDetail, api...))
	mux.HandleFunc("/api/v1/compile", Chain(s.HandleCompile, api...))

	return mux
}

// handleJobs handles /api/v1/jobs (list and create)
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.HandleListJobs(w, r)
	case http.MethodPost:
		s.HandleCreateJob(w, r)
	default:
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// handleJobDetail handles /api/v1/jobs/{id} (get and delete)
func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.HandleGetJob(w, r)
	case http.MethodDelete:
		s.HandleDeleteJob(w, r)
	default:
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}
