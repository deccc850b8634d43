package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/internal/storage"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Last login not recorded")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil || !user.IsActive {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleGetCurrentUser gets the authenticated user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}

	user.PasswordHash = ""
	s.respondJSON(w, http.StatusOK, user)
}

// ========== User handlers ==========

// HandleListUsers lists users
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, total, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, user := range users {
		user.PasswordHash = ""
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateUser creates a user
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		Username  string `json:"username,omitempty"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
		IsAdmin   bool   `json:"is_admin"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username == "" {
		req.Username = req.Email
	}

	user := &models.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsAdmin:   req.IsAdmin,
		IsActive:  true,
		Settings:  make(models.Variables),
	}

	// Store password temporarily
	user.Settings["password"] = req.Password

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Clear sensitive data
	delete(user.Settings, "password")
	user.PasswordHash = ""

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetUser gets a user
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user.PasswordHash = ""
	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Username  string `json:"username,omitempty"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
		Email     string `json:"email" validate:"required,email"`
		IsActive  bool   `json:"is_active"`
		IsAdmin   bool   `json:"is_admin"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	user.Email = req.Email
	user.IsActive = req.IsActive
	user.IsAdmin = req.IsAdmin

	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user.PasswordHash = ""
	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Event handlers ==========

// HandleListEvents lists stored monitor events for the caller
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	filters := storage.EventLogFilters{
		UserID:     &claims.UserID,
		CustomerID: r.URL.Query().Get("customer_id"),
		LocationID: r.URL.Query().Get("location_id"),
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		eventType := models.EventType(typ)
		filters.Type = &eventType
	}
	if level := r.URL.Query().Get("level"); level != "" {
		eventLevel := models.EventLevel(level)
		filters.Level = &eventLevel
	}

	events, total, err := s.store.ListEventLogs(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
