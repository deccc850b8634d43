package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/panoptes-nms/panoptes-server/internal/cloud"
	"github.com/panoptes-nms/panoptes-server/internal/monitor"
)

// ========== Location monitoring handlers ==========

// HandleLocationHealth runs the location health check
func (s *RESTServer) HandleLocationHealth(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	customerID := chi.URLParam(r, "customerID")
	locationID := chi.URLParam(r, "locationID")

	result, err := s.monitor.LocationHealth(r.Context(), claims.UserID, customerID, locationID)
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// HandleLocationUptime runs the uptime/incident analysis. The window comes
// either from a preset (?range=3h|24h|7d) or explicit granularity and limit.
func (s *RESTServer) HandleLocationUptime(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	customerID := chi.URLParam(r, "customerID")
	locationID := chi.URLParam(r, "locationID")

	granularity := r.URL.Query().Get("granularity")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if key := r.URL.Query().Get("range"); key != "" {
		tr, ok := monitor.ResolveTimeRange(key)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "unknown range, use 3h, 24h or 7d")
			return
		}
		granularity, limit = tr.Granularity, tr.Limit
	}
	if granularity == "" {
		granularity = "hours"
	}
	if limit <= 0 {
		limit = 24
	}

	result, err := s.monitor.Uptime(r.Context(), claims.UserID, customerID, locationID, granularity, limit)
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// HandleLocationWAN runs the WAN consumption analysis
func (s *RESTServer) HandleLocationWAN(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	customerID := chi.URLParam(r, "customerID")
	locationID := chi.URLParam(r, "locationID")

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 1
	}

	result, err := s.monitor.WANConsumption(r.Context(), claims.UserID, customerID, locationID, days)
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// HandleLocationOverview renders the location summary
func (s *RESTServer) HandleLocationOverview(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	report, err := s.monitor.LocationOverview(r.Context(), claims.UserID,
		chi.URLParam(r, "customerID"), chi.URLParam(r, "locationID"))
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"report": report})
}

// HandleLocationNodes renders the node listing
func (s *RESTServer) HandleLocationNodes(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	report, err := s.monitor.NodesReport(r.Context(), claims.UserID,
		chi.URLParam(r, "customerID"), chi.URLParam(r, "locationID"))
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"report": report})
}

// HandleLocationDevices renders the device listing
func (s *RESTServer) HandleLocationDevices(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	report, err := s.monitor.DevicesReport(r.Context(), claims.UserID,
		chi.URLParam(r, "customerID"), chi.URLParam(r, "locationID"))
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"report": report})
}

// HandleLocationWiFi renders the WiFi network listing
func (s *RESTServer) HandleLocationWiFi(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	report, err := s.monitor.WiFiReport(r.Context(), claims.UserID,
		chi.URLParam(r, "customerID"), chi.URLParam(r, "locationID"))
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"report": report})
}

// HandleNodeDetails returns a single node by id
func (s *RESTServer) HandleNodeDetails(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	node, err := s.monitor.NodeDetails(r.Context(), claims.UserID, chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondCloudError(w, err)
		return
	}
	if node == nil {
		s.respondError(w, http.StatusNotFound, "node not found")
		return
	}

	s.respondJSON(w, http.StatusOK, node)
}

// HandleSearchCustomers lists customers visible to the caller
func (s *RESTServer) HandleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	customers, err := s.monitor.SearchCustomers(r.Context(), claims.UserID, limit)
	if err != nil {
		s.respondCloudError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"customers": customers,
		"count":     len(customers),
	})
}

// HandleLocationReports lists stored report snapshots for a location
func (s *RESTServer) HandleLocationReports(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	snapshots, total, err := s.monitor.ReportHistory(r.Context(), claims.UserID,
		chi.URLParam(r, "customerID"), chi.URLParam(r, "locationID"), limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": snapshots,
		"total":   total,
	})
}

// respondCloudError maps the cloud error taxonomy onto HTTP statuses:
// missing setup asks the caller to configure credentials, issuance failures
// and upstream 5xx surface as bad gateway, rejected tokens as unauthorized.
func (s *RESTServer) respondCloudError(w http.ResponseWriter, err error) {
	if errors.Is(err, cloud.ErrAuthConfig) {
		s.respondError(w, http.StatusPreconditionFailed, "credential setup required")
		return
	}

	var oauthErr *cloud.OAuthError
	if errors.As(err, &oauthErr) {
		if oauthErr.Timeout {
			s.respondError(w, http.StatusGatewayTimeout, "identity provider timed out")
			return
		}
		s.respondError(w, http.StatusBadGateway, oauthErr.Error())
		return
	}

	var apiErr *cloud.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case cloud.KindAuth:
			s.respondError(w, http.StatusUnauthorized, "cloud API rejected credentials")
		case cloud.KindTimeout:
			s.respondError(w, http.StatusGatewayTimeout, "cloud API timed out")
		case cloud.KindClient:
			status := apiErr.Status
			if status == 0 {
				status = http.StatusNotFound
			}
			s.respondError(w, status, apiErr.Message)
		default:
			s.respondError(w, http.StatusBadGateway, apiErr.Error())
		}
		return
	}

	s.respondError(w, http.StatusInternalServerError, err.Error())
}
