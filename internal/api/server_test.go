package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/cloud"
	"github.com/panoptes-nms/panoptes-server/internal/config"
	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/internal/monitor"
	"github.com/panoptes-nms/panoptes-server/internal/storage"
)

type stubIssuer struct {
	err error
}

func (s *stubIssuer) Issue(ctx context.Context, creds *models.CredentialRecord) (*models.TokenRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.TokenRecord{
		AccessToken: "cloud-token",
		ExpiresIn:   3600,
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

type stubCloud struct {
	nodes []models.Node
	err   error
}

func (s *stubCloud) Nodes(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Node, error) {
	return s.nodes, s.err
}

func (s *stubCloud) Devices(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Device, error) {
	return nil, s.err
}

func (s *stubCloud) Location(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Location, error) {
	return nil, s.err
}

func (s *stubCloud) ServiceLevel(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.ServiceLevel, error) {
	return nil, s.err
}

func (s *stubCloud) QoEStats(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.QoEStats, error) {
	return nil, s.err
}

func (s *stubCloud) Backhaul(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Backhaul, error) {
	return nil, s.err
}

func (s *stubCloud) OnlineStats(ctx context.Context, userID uuid.UUID, customerID, locationID, granularity string, limit int) (*models.OnlineStatsResponse, error) {
	return &models.OnlineStatsResponse{}, s.err
}

func (s *stubCloud) WANStats(ctx context.Context, userID uuid.UUID, customerID, locationID string, days int) (*models.WANStatsResponse, error) {
	return &models.WANStatsResponse{}, s.err
}

func (s *stubCloud) NodeDetails(ctx context.Context, userID uuid.UUID, nodeID string) (*models.Node, error) {
	for i := range s.nodes {
		if s.nodes[i].ID == nodeID {
			return &s.nodes[i], nil
		}
	}
	return nil, s.err
}

func (s *stubCloud) WiFiNetworks(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.WiFiNetwork, error) {
	return nil, s.err
}

func (s *stubCloud) SearchCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	return nil, s.err
}

type testServer struct {
	srv    *RESTServer
	store  *storage.MemoryStore
	cloud  *stubCloud
	issuer *stubIssuer
	cache  *cloud.TokenCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Name = "panoptes-server"
	cfg.Server.Version = "test"
	cfg.JWT.Secret = "api-test-secret"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour
	cfg.Cloud.IdentityURL = "https://identity.example.com/oauth/token"

	store := storage.NewMemoryStore()
	issuer := &stubIssuer{}
	cache := cloud.NewTokenCache(issuer, store)
	api := &stubCloud{}
	svc := monitor.NewService(api, store, nil)
	setup := monitor.NewSetupFlow(issuer, cache, cfg.Cloud.IdentityURL)

	return &testServer{
		srv:    NewRESTServer(cfg, store, svc, setup, issuer, cache),
		store:  store,
		cloud:  api,
		issuer: issuer,
		cache:  cache,
	}
}

func (ts *testServer) createUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    email,
		Username: email,
		IsActive: true,
		Settings: models.Variables{"password": password},
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), user))
	return user
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path, token string, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")

	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	rec := ts.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ops@example.com", user.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")

	body, _ := json.Marshal(map[string]string{"email": "ops@example.com", "password": "wrong"})
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", bytes.NewReader(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/locations/c1/l1/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/locations/c1/l1/health", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpointWithoutSetupReturns412(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	// No credentials stored: the cloud client surfaces ErrAuthConfig
	ts.cloud.err = cloud.ErrAuthConfig

	rec := ts.do(t, http.MethodGet, "/api/v1/locations/c1/l1/health", token, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Body.String(), "setup required")
}

func TestCloudErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"oauth failure", &cloud.OAuthError{Reason: "rejected", Status: 401}, http.StatusBadGateway},
		{"oauth timeout", &cloud.OAuthError{Reason: "slow", Timeout: true}, http.StatusGatewayTimeout},
		{"token rejected", &cloud.APIError{Kind: cloud.KindAuth, Status: 401}, http.StatusUnauthorized},
		{"upstream timeout", &cloud.APIError{Kind: cloud.KindTimeout}, http.StatusGatewayTimeout},
		{"upstream 404", &cloud.APIError{Kind: cloud.KindClient, Status: 404}, http.StatusNotFound},
		{"upstream 5xx", &cloud.APIError{Kind: cloud.KindServer, Status: 503}, http.StatusBadGateway},
		{"decode failure", &cloud.APIError{Kind: cloud.KindDecode, Status: 200}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.createUser(t, "ops@example.com", "correct-horse-battery")
			token := ts.login(t, "ops@example.com", "correct-horse-battery")
			ts.cloud.err = tt.err

			rec := ts.do(t, http.MethodGet, "/api/v1/locations/c1/l1/health", token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUptimeRejectsUnknownRange(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	rec := ts.do(t, http.MethodGet, "/api/v1/locations/c1/l1/uptime?range=1y", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetupFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	step := func(input string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"input": input})
		return ts.do(t, http.MethodPost, "/api/v1/setup/step", token, bytes.NewReader(body))
	}

	// Step before start conflicts
	rec := step("Basic abc")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/setup/start", token, bytes.NewReader([]byte("{}")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_header")

	// Invalid input stays on the same step with 400
	rec = step("missing-prefix")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = step("Basic dGVzdA==")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "partner_id")

	rec = step("partner-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_base")

	rec = step("")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirm")

	rec = step("confirm")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "done")

	// Status now reports configured credentials
	rec = ts.do(t, http.MethodGet, "/api/v1/credentials/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Configured bool   `json:"configured"`
		PartnerID  string `json:"partner_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Configured)
	assert.Equal(t, "partner-1", status.PartnerID)

	// Secret material is never in the response
	assert.NotContains(t, rec.Body.String(), "dGVzdA==")
}

func TestPutCredentialsVerifiesIssuance(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	payload := map[string]string{
		"authHeader": "Basic dGVzdA==",
		"partnerId":  "partner-9",
	}

	// Provider rejects the credentials
	ts.issuer.err = &cloud.OAuthError{Reason: "rejected", Status: 401}
	body, _ := json.Marshal(payload)
	rec := ts.do(t, http.MethodPut, "/api/v1/credentials/", token, bytes.NewReader(body))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Provider accepts
	ts.issuer.err = nil
	body, _ = json.Marshal(payload)
	rec = ts.do(t, http.MethodPut, "/api/v1/credentials/", token, bytes.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Delete removes them
	rec = ts.do(t, http.MethodDelete, "/api/v1/credentials/", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/credentials/", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUserEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "admin@example.com", "correct-horse-battery")
	token := ts.login(t, "admin@example.com", "correct-horse-battery")

	body, _ := json.Marshal(map[string]interface{}{
		"email":    "new@example.com",
		"password": "long-enough-pass",
	})
	rec := ts.do(t, http.MethodPost, "/api/v1/users/", token, bytes.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Password material never leaves the server
	assert.NotContains(t, rec.Body.String(), "long-enough-pass")
	assert.NotContains(t, rec.Body.String(), "password_hash")

	// Duplicate email conflicts
	rec = ts.do(t, http.MethodPost, "/api/v1/users/", token, bytes.NewReader(body))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")

	body, _ := json.Marshal(map[string]string{"email": "ops@example.com", "password": "correct-horse-battery"})
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))

	refreshBody, _ := json.Marshal(map[string]string{"refresh_token": loginResp.RefreshToken})
	rec = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", bytes.NewReader(refreshBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")

	refreshBody, _ = json.Marshal(map[string]string{"refresh_token": "bogus"})
	rec = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", bytes.NewReader(refreshBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNodeDetailsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	ts.cloud.nodes = []models.Node{
		{ID: "pod-1", Nickname: "Living Room", ConnectionState: "connected"},
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/nodes/pod-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Living Room")

	rec = ts.do(t, http.MethodGet, "/api/v1/nodes/pod-9", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLocationWiFiEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ops@example.com", "correct-horse-battery")
	token := ts.login(t, "ops@example.com", "correct-horse-battery")

	rec := ts.do(t, http.MethodGet, "/api/v1/locations/cust-1/loc-1/wifi", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "No WiFi networks configured")
}
