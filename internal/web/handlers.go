package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/On-Jun9/MetaProbe/internal/pipeline"
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIErrorResponse{Message: message})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, ValidationError{
		Field:   field,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ExtractResponse is the payload the browser widget consumes.
type ExtractResponse struct {
	Success bool   `json:"success"`
	Preview string `json:"preview"`
	HTML    string `json:"html"`
	Message string `json:"message"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimSpace(r.FormValue("file"))
	if file == "" {
		writeValidationError(w, "file", "file is required")
		return
	}

	result := s.pipeline.Extract(r.Context(), pipeline.Request{
		Reference:  file,
		Service:    r.FormValue("service"),
		Authorized: s.auth.Authorized(r),
	})

	// Failures are reported in the body; the widget always expects 200.
	writeJSON(w, http.StatusOK, ExtractResponse{
		Success: result.Success,
		Preview: result.Preview,
		HTML:    result.HTML,
		Message: result.Message,
	})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Services(r.Context()))
}

type DecodeResponse struct {
	Processor string `json:"processor"`
	Value     string `json:"value"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	processor := r.URL.Query().Get("processor")
	if processor == "" {
		writeValidationError(w, "processor", "processor is required")
		return
	}

	value, err := s.pipeline.Decode(processor, r.URL.Query().Get("value"))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DecodeResponse{Processor: processor, Value: value})
}

type BatchRequest struct {
	Requests []pipeline.Request `json:"requests"`
	Jobs     int                `json:"jobs"`
}

// handleBatch starts a batch in the background. Results reach the browser through the
// websocket hub.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorized(r) {
		writeAPIError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Requests) == 0 {
		writeValidationError(w, "requests", "at least one request is required")
		return
	}
	for i := range req.Requests {
		req.Requests[i].Authorized = true
	}
	jobs := req.Jobs
	if jobs < 1 {
		jobs = s.jobs
	}

	if !s.batchMu.TryLock() {
		writeAPIError(w, http.StatusConflict, "batch already running")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "total": len(req.Requests)})

	go func() {
		defer s.batchMu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.broadcastProgress(pipeline.ProgressUpdate{Type: "error", Error: fmt.Sprintf("internal error: %v", r)})
			}
		}()

		s.pipeline.ExtractBatch(context.Background(), req.Requests, jobs)
	}()
}

func (s *Server) broadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.hub.broadcast <- data
}

func (s *Server) broadcastProgress(update pipeline.ProgressUpdate) {
	s.broadcastJSON(update)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}
