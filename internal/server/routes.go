// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 9:12:40 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs (simulation run management)
	mux.HandleFunc("/api/jobs/history", s.app.JobHandler.JobHistoryHandler)
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{name}

	// API routes - Solver catalog
	mux.HandleFunc("/api/solvers/reload", s.app.JobHandler.ReloadSolversHandler)
	mux.HandleFunc("/api/solvers", s.app.JobHandler.ListSolversHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute dispatches the collection endpoint by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.JobHandler.ListJobsHandler(w, r)
	case "POST":
		s.app.JobHandler.StartJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes per-job requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if name == "" || strings.Contains(name, "/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case "GET":
		s.app.JobHandler.GetJobHandler(w, r, name)
	case "DELETE":
		s.app.JobHandler.CancelJobHandler(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
