package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/internal/monitor"
	"github.com/panoptes-nms/panoptes-server/internal/storage"
)

// ========== Guided setup handlers ==========

// HandleSetupStart begins (or restarts) the guided credential setup
func (s *RESTServer) HandleSetupStart(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	step := s.setup.Start(claims.UserID)
	s.respondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

// HandleSetupStatus reports the current setup step
func (s *RESTServer) HandleSetupStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	step, active := s.setup.Status(claims.UserID)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"active": active,
		"step":   string(step),
	})
}

// HandleSetupStep feeds one input into the setup flow
func (s *RESTServer) HandleSetupStep(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next, err := s.setup.Submit(r.Context(), claims.UserID, req.Input)
	if err != nil {
		if errors.Is(err, monitor.ErrNoActiveFlow) {
			s.respondError(w, http.StatusConflict, "no setup flow in progress")
			return
		}
		var stepErr *monitor.StepError
		if errors.As(err, &stepErr) {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": stepErr.Message,
				"step":  string(stepErr.Step),
			})
			return
		}
		// Confirm-step verification failure
		s.respondCloudError(w, err)
		return
	}

	if next == monitor.StepDone {
		s.recordSetupCompleted(r, claims.UserID)
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"step": string(next)})
}

// HandleSetupCancel aborts the setup flow
func (s *RESTServer) HandleSetupCancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := s.setup.Cancel(claims.UserID); err != nil {
		s.respondError(w, http.StatusConflict, "no setup flow in progress")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Direct credential handlers ==========

// HandlePutCredentials stores a credential record directly, verifying it with
// one token issuance first.
func (s *RESTServer) HandlePutCredentials(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		IdentityURL    string `json:"identityUrl" validate:"url"`
		AuthHeader     string `json:"authHeader" validate:"required"`
		PartnerID      string `json:"partnerId" validate:"required"`
		APIBase        string `json:"apiBase,omitempty"`
		ReportsAPIBase string `json:"reportsApiBase,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.IdentityURL == "" {
		req.IdentityURL = s.config.Cloud.IdentityURL
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	creds := &models.CredentialRecord{
		UserID:         claims.UserID,
		IdentityURL:    req.IdentityURL,
		AuthHeader:     req.AuthHeader,
		PartnerID:      req.PartnerID,
		APIBase:        req.APIBase,
		ReportsAPIBase: req.ReportsAPIBase,
	}

	if !creds.Complete() {
		s.respondError(w, http.StatusBadRequest, "identity URL, auth header and partner id are required")
		return
	}

	// Verify before committing
	if _, err := s.issuer.Issue(r.Context(), creds); err != nil {
		s.respondCloudError(w, err)
		return
	}

	if err := s.cache.SetCredentials(r.Context(), claims.UserID, creds); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordSetupCompleted(r, claims.UserID)

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// HandleCredentialStatus reports whether credentials exist and whether a
// cached token is currently valid. Secret material never leaves the server.
func (s *RESTServer) HandleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	creds := s.cache.Credentials(claims.UserID)
	resp := map[string]interface{}{
		"configured":  creds.Complete(),
		"token_valid": s.cache.IsValid(claims.UserID),
	}
	if creds != nil {
		resp["partner_id"] = creds.PartnerID
		resp["identity_url"] = creds.IdentityURL
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// HandleDeleteCredentials removes the caller's credential record
func (s *RESTServer) HandleDeleteCredentials(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := s.cache.DeleteCredentials(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no credentials stored")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recordSetupCompleted writes the completion event; failures only log.
func (s *RESTServer) recordSetupCompleted(r *http.Request, userID uuid.UUID) {
	event := &models.EventLog{
		UserID:      &userID,
		Type:        models.EventTypeSetupCompleted,
		Level:       models.EventLevelInfo,
		Description: "cloud credentials verified and stored",
	}
	if err := s.store.CreateEventLog(r.Context(), event); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Setup event not stored")
	}
}
