package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vctools/vctools/internal/bootiso"
	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/output"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Default handler
	mux.HandleFunc("/", s.withMiddleware(s.handleDefault))

	// Both spellings so trailing slashes work
	mux.HandleFunc("/api/mkbootiso", s.withMiddleware(s.handleBootISO))
	mux.HandleFunc("/api/mkbootiso/", s.withMiddleware(s.handleBootISO))

	return mux
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handling default route",
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      name,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes: []string{
			"GET /api/mkbootiso",
			"POST /api/mkbootiso",
		},
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBootISO(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBootISOUsage(w, r)
	case http.MethodPost:
		s.handleBootISOBuild(w, r)
	default:
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			fmt.Sprintf("method %s not allowed, use GET or POST", r.Method), false, nil)
	}
}

// handleBootISOUsage handles GET /api/mkbootiso
func (s *Server) handleBootISOUsage(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Usage   string          `json:"usage"`
		Example bootiso.Request `json:"example"`
	}{
		Usage: "POST a JSON build request to this endpoint",
		Example: bootiso.Request{
			Source:  "/srv/trees/rhel7",
			KS:      "http://ks.example.com/web01.cfg",
			Options: map[string]string{"hostname": "web01.example.com"},
			Output:  "/tmp",
		},
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleBootISOBuild handles POST /api/mkbootiso
func (s *Server) handleBootISOBuild(w http.ResponseWriter, r *http.Request) {
	var req bootiso.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			fmt.Sprintf("failed to decode request body: %s", err), false, nil)
		return
	}

	path, size, err := s.build(r.Context(), &req)
	if err != nil {
		if config.IsInvalid(err) {
			WriteError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, nil)
			return
		}
		WriteError(w, r, http.StatusBadGateway, ErrCodeBuildFailed, err.Error(), true, nil)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s %s\n", path, output.HumanSize(size))
}
