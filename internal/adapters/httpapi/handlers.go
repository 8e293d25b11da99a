package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/jobs"
	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 20

type websiteCheckRequest struct {
	URL string `json:"url"`
}

type emailCheckRequest struct {
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
}

func (r *emailCheckRequest) toEmail() *core.Email {
	return &core.Email{
		Subject:   r.Subject,
		Body:      r.Content,
		Sender:    r.Sender,
		Recipient: r.Recipient,
	}
}

type bulkCheckRequest struct {
	Emails []emailCheckRequest `json:"emails"`
}

type asyncCheckResponse struct {
	TrackingID string `json:"trackingId"`
	Message    string `json:"message"`
	URL        string `json:"url,omitempty"`
}

type quickCheckResponse struct {
	IsHighPrioritySpam bool `json:"isHighPrioritySpam"`
}

type healthResponse struct {
	Message string `json:"message"`
	Healthy bool   `json:"healthy"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleCheckWebsite(w http.ResponseWriter, r *http.Request) {
	var req websiteCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.CheckWebsite(r.Context(), req.URL)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckWebsiteAsync(w http.ResponseWriter, r *http.Request) {
	var req websiteCheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		s.respondWithError(w, http.StatusBadRequest, "INVALID_URL", "url is required")
		return
	}

	id, err := s.jobs.Submit(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, jobs.ErrClosed) {
			s.respondWithError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Service is shutting down")
			return
		}
		s.logger.Error("Failed to submit async check", zap.String("url", req.URL), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not submit check")
		return
	}

	// Echo the URL the result will carry; invalid ones come back as a failed verdict
	echoed := req.URL
	if canonical, err := core.CanonicalizeURL(req.URL); err == nil {
		echoed = canonical
	}
	s.respondWithJSON(w, http.StatusAccepted, asyncCheckResponse{
		TrackingID: id,
		Message:    "Analysis started. Use the tracking ID to retrieve the result.",
		URL:        echoed,
	})
}

func (s *Server) handleAsyncStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackingId")

	state, result := s.jobs.Poll(id)
	switch state {
	case jobs.Done:
		s.respondWithJSON(w, http.StatusOK, result)
	case jobs.Pending:
		s.respondWithJSON(w, http.StatusAccepted, asyncCheckResponse{
			TrackingID: id,
			Message:    "Analysis in progress",
		})
	default:
		s.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown or already collected tracking ID")
	}
}

func (s *Server) handleAsyncCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackingId")
	if !s.jobs.Cancel(id) {
		s.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown or already collected tracking ID")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckSpam(w http.ResponseWriter, r *http.Request) {
	var req emailCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.logger.Info("Received email spam check request",
		zap.String("subject", req.Subject),
		zap.String("sender", req.Sender))

	result, err := s.service.CheckEmail(r.Context(), req.toEmail())
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkCheck(w http.ResponseWriter, r *http.Request) {
	var req bulkCheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Emails) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "INVALID_INPUT", "Email list cannot be empty")
		return
	}

	emails := make([]*core.Email, len(req.Emails))
	for i := range req.Emails {
		emails[i] = req.Emails[i].toEmail()
	}

	result, err := s.service.CheckBulkEmails(r.Context(), emails)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuickCheck(w http.ResponseWriter, r *http.Request) {
	var req emailCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	highRisk, err := s.service.QuickCheck(r.Context(), req.toEmail())
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, quickCheckResponse{IsHighPrioritySpam: highRisk})
}

func (s *Server) handleSpamKeywords(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.service.SpamKeywords())
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, healthResponse{
		Message: "Content safety service is running.",
		Healthy: true,
	})
}

// decode reads a JSON body into v, answering 400 itself on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

func (s *Server) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrBulkLimitExceeded):
		s.respondWithError(w, http.StatusBadRequest, "BULK_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		s.respondWithError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, errCode, message string) {
	s.respondWithJSON(w, code, errorResponse{
		Code:      errCode,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}
