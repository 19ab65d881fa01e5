package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"afunding/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service":     "Afunding",
		"version":     "1.0.0",
		"description": "Campaign registry mirror",
		"endpoints": map[string]string{
			"GET /":                 "This page - Service information",
			"GET /health":           "Health check endpoint",
			"GET /metrics":          "Prometheus metrics for monitoring",
			"GET /block":            "Current block number (null while unknown)",
			"GET /campaigns":        "Fetch every campaign from the registry",
			"POST /campaigns":       "Create a campaign (title, description, goal)",
			"GET /campaigns/status": "Message of the last creation request",
		},
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "afunding",
	})
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleBlock mounts the home view
// GET /block - One-shot block number read
func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	// A failed read is already logged and leaves the number unset
	_ = sess.MountHome(r.Context()).Wait(r.Context())
	if r.Context().Err() != nil {
		return
	}

	s.sendJSON(w, http.StatusOK, models.BlockResponse{BlockNumber: sess.BlockNumber()})
}

// handleListCampaigns mounts the list view and returns its snapshot
// GET /campaigns
//
// The sequence is bound to the request: a client that goes away unmounts
// the view and nothing is published. Count failures are not reported; the
// previous snapshot is returned.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	mount := sess.MountCampaignList(r.Context())
	defer mount.Unmount()

	if err := mount.Wait(r.Context()); err != nil {
		if r.Context().Err() != nil {
			slog.Debug("List view unmounted before the fetch completed", "session", sess.ID())
			return
		}
		slog.Debug("Fetch sequence failed, serving previous snapshot", "session", sess.ID(), "error", err)
	}

	snapshot := sess.Campaigns()
	s.sendJSON(w, http.StatusOK, models.CampaignListResponse{
		Campaigns: snapshot,
		Total:     len(snapshot),
	})
}

// handleCreateCampaign submits the creation form
// POST /campaigns - JSON body or form values: title, description, goal
//
// Write failures are reported in the status message, not as an HTTP error.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	req, err := decodeCreateRequest(r)
	if err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := sess.Submit(r.Context(), req.Title, req.Description, req.Goal)
	s.sendJSON(w, http.StatusOK, models.StatusResponse{Status: &status})
}

// handleStatus returns the last submission message
// GET /campaigns/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.sendJSON(w, http.StatusOK, models.StatusResponse{Status: sess.Status()})
}

func decodeCreateRequest(r *http.Request) (models.CreateCampaignRequest, error) {
	var req models.CreateCampaignRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Title = r.PostFormValue("title")
	req.Description = r.PostFormValue("description")
	req.Goal = r.PostFormValue("goal")
	return req, nil
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
