package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/config"
	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Client is the API gateway to the cloud network-management API. It injects
// a valid bearer token into every request via the token cache and maps
// transport and HTTP failures into the typed error taxonomy.
type Client struct {
	http  *http.Client
	cache *TokenCache

	defaultAPIBase     string
	defaultReportsBase string
}

// NewClient creates an API gateway client.
func NewClient(cfg *config.CloudConfig, cache *TokenCache) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:               &http.Client{Timeout: timeout},
		cache:              cache,
		defaultAPIBase:     cfg.APIBase,
		defaultReportsBase: cfg.ReportsAPIBase,
	}
}

// Cache exposes the token cache, the only owner of credential state.
func (c *Client) Cache() *TokenCache { return c.cache }

// do issues one authenticated request and decodes the JSON response into out
// (when out is non-nil). reportsAPI selects the reporting API base URL.
func (c *Client) do(ctx context.Context, userID uuid.UUID, method, path string, params url.Values, body, out interface{}, reportsAPI bool) error {
	token, err := c.cache.EnsureValidToken(ctx, userID)
	if err != nil {
		return err
	}

	reqURL := c.buildURL(userID, path, params, reportsAPI)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindClient, Path: path, Message: "encode request body", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), reqURL, reqBody)
	if err != nil {
		return &APIError{Kind: KindClient, Path: path, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &APIError{Kind: KindTimeout, Path: path, Message: "request timed out", Err: err}
		}
		return &APIError{Kind: KindNetwork, Path: path, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &APIError{Kind: KindNetwork, Path: path, Message: "read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Force re-issuance on the next request; credentials stay intact.
		c.cache.InvalidateToken(userID)
		log.Warn().
			Int("status", resp.StatusCode).
			Str("user_id", userID.String()).
			Msg("Cloud API rejected token, cache invalidated")
		return &APIError{Kind: KindAuth, Status: resp.StatusCode, Path: path, Message: "token rejected"}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &APIError{Kind: KindClient, Status: resp.StatusCode, Path: path, Message: truncate(respBody, 300)}

	case resp.StatusCode >= 500:
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Path: path, Message: truncate(respBody, 300)}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Kind: KindDecode, Status: resp.StatusCode, Path: path, Message: "invalid JSON response", Err: err}
	}

	return nil
}

// buildURL resolves the base URL (per-identity override, then configured
// default) and joins it with the endpoint path and query parameters.
func (c *Client) buildURL(userID uuid.UUID, path string, params url.Values, reportsAPI bool) string {
	base := c.defaultAPIBase
	if reportsAPI {
		base = c.defaultReportsBase
	}

	if creds := c.cache.Credentials(userID); creds != nil {
		if reportsAPI && creds.ReportsAPIBase != "" {
			base = creds.ReportsAPIBase
		} else if !reportsAPI && creds.APIBase != "" {
			base = creds.APIBase
		}
	}

	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ========== Endpoint wrappers ==========

// Nodes lists all nodes (pods and gateways) at a location.
func (c *Client) Nodes(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Node, error) {
	var nodes []models.Node
	path := fmt.Sprintf("Customers/%s/locations/%s/nodes", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &nodes, false); err != nil {
		return nil, err
	}
	return nodes, nil
}

// NodeDetails fetches detail for a single node.
func (c *Client) NodeDetails(ctx context.Context, userID uuid.UUID, nodeID string) (*models.Node, error) {
	var node models.Node
	path := fmt.Sprintf("partners/nodes/%s", nodeID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &node, false); err != nil {
		return nil, err
	}
	return &node, nil
}

// Devices lists client devices at a location.
func (c *Client) Devices(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Device, error) {
	var devices []models.Device
	path := fmt.Sprintf("Customers/%s/locations/%s/devices", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &devices, false); err != nil {
		return nil, err
	}
	return devices, nil
}

// Location fetches location metadata.
func (c *Client) Location(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Location, error) {
	var loc models.Location
	path := fmt.Sprintf("Customers/%s/locations/%s", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &loc, false); err != nil {
		return nil, err
	}
	return &loc, nil
}

// WiFiNetworks lists WiFi networks configured at a location.
func (c *Client) WiFiNetworks(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.WiFiNetwork, error) {
	var networks []models.WiFiNetwork
	path := fmt.Sprintf("Customers/%s/locations/%s/wifiNetworks", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &networks, false); err != nil {
		return nil, err
	}
	return networks, nil
}

// Backhaul fetches internet/backhaul health for a location.
func (c *Client) Backhaul(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Backhaul, error) {
	var backhaul models.Backhaul
	path := fmt.Sprintf("Customers/%s/locations/%s/backhaul", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &backhaul, false); err != nil {
		return nil, err
	}
	return &backhaul, nil
}

// ServiceLevel fetches the service-level payload for a location.
func (c *Client) ServiceLevel(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.ServiceLevel, error) {
	var level models.ServiceLevel
	path := fmt.Sprintf("Customers/%s/locations/%s/serviceLevel", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &level, false); err != nil {
		return nil, err
	}
	return &level, nil
}

// QoEStats fetches App QoE metrics grouped by traffic class.
func (c *Client) QoEStats(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.QoEStats, error) {
	var stats models.QoEStats
	path := fmt.Sprintf("Customers/%s/locations/%s/appqoe/AppQoeStatsByTrafficClass", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, nil, nil, &stats, false); err != nil {
		return nil, err
	}
	return &stats, nil
}

// OnlineStats fetches online/offline state history from the reporting API.
func (c *Client) OnlineStats(ctx context.Context, userID uuid.UUID, customerID, locationID, granularity string, limit int) (*models.OnlineStatsResponse, error) {
	params := url.Values{}
	params.Set("granularity", granularity)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var stats models.OnlineStatsResponse
	path := fmt.Sprintf("Customers/%s/locations/%s/onlineStats", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, params, nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// WANStats fetches WAN throughput history from the reporting API.
func (c *Client) WANStats(ctx context.Context, userID uuid.UUID, customerID, locationID string, days int) (*models.WANStatsResponse, error) {
	params := url.Values{}
	params.Set("granularity", "days")
	params.Set("limit", fmt.Sprintf("%d", days))

	var stats models.WANStatsResponse
	path := fmt.Sprintf("Customers/%s/locations/%s/wanStats", customerID, locationID)
	if err := c.do(ctx, userID, http.MethodGet, path, params, nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SearchCustomers looks up customers reachable with the caller's partner id.
func (c *Client) SearchCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var customers []map[string]interface{}
	if err := c.do(ctx, userID, http.MethodGet, "partners/customers", params, nil, &customers, false); err != nil {
		return nil, err
	}
	return customers, nil
}
