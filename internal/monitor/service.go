package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/analysis"
	"github.com/panoptes-nms/panoptes-server/internal/models"
	"github.com/panoptes-nms/panoptes-server/internal/report"
	"github.com/panoptes-nms/panoptes-server/internal/storage"
)

// CloudAPI is the slice of the cloud client the monitor service consumes.
type CloudAPI interface {
	Nodes(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Node, error)
	NodeDetails(ctx context.Context, userID uuid.UUID, nodeID string) (*models.Node, error)
	Devices(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.Device, error)
	WiFiNetworks(ctx context.Context, userID uuid.UUID, customerID, locationID string) ([]models.WiFiNetwork, error)
	SearchCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]map[string]interface{}, error)
	Location(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Location, error)
	ServiceLevel(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.ServiceLevel, error)
	QoEStats(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.QoEStats, error)
	Backhaul(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*models.Backhaul, error)
	OnlineStats(ctx context.Context, userID uuid.UUID, customerID, locationID, granularity string, limit int) (*models.OnlineStatsResponse, error)
	WANStats(ctx context.Context, userID uuid.UUID, customerID, locationID string, days int) (*models.WANStatsResponse, error)
}

// EventSink receives monitor events for fan-out. Implementations must not
// block the caller.
type EventSink interface {
	Publish(event *models.EventLog)
}

// TimeRange is a preset uptime query window.
type TimeRange struct {
	Granularity string
	Limit       int
}

// Uptime query presets.
var timeRanges = map[string]TimeRange{
	"3h":  {Granularity: "hours", Limit: 3},
	"24h": {Granularity: "hours", Limit: 24},
	"7d":  {Granularity: "days", Limit: 7},
}

// ResolveTimeRange maps a preset key to its query window.
func ResolveTimeRange(key string) (TimeRange, bool) {
	tr, ok := timeRanges[key]
	return tr, ok
}

// Service orchestrates cloud fetches, analysis, report rendering, snapshot
// persistence and event fan-out for one request.
type Service struct {
	api   CloudAPI
	store storage.Store // optional
	sink  EventSink     // optional
}

// NewService creates a monitor service. store and sink may be nil.
func NewService(api CloudAPI, store storage.Store, sink EventSink) *Service {
	return &Service{api: api, store: store, sink: sink}
}

// HealthResult bundles a health verdict with its rendered report.
type HealthResult struct {
	Verdict *models.HealthVerdict `json:"verdict"`
	Report  string                `json:"report"`
}

// LocationHealth runs the full health check for a location. The node list is
// required; devices, service level, QoE and location metadata are fetched
// best-effort since any of those endpoints may be unavailable per variant.
func (s *Service) LocationHealth(ctx context.Context, userID uuid.UUID, customerID, locationID string) (*HealthResult, error) {
	nodes, err := s.api.Nodes(ctx, userID, customerID, locationID)
	if err != nil {
		return nil, err
	}

	in := analysis.HealthInput{Nodes: nodes}

	if devices, err := s.api.Devices(ctx, userID, customerID, locationID); err == nil {
		in.Devices = devices
	} else {
		log.Debug().Err(err).Str("location_id", locationID).Msg("Device list unavailable")
	}
	if level, err := s.api.ServiceLevel(ctx, userID, customerID, locationID); err == nil {
		in.ServiceLevel = level
	} else {
		log.Debug().Err(err).Str("location_id", locationID).Msg("Service level unavailable")
	}
	if qoe, err := s.api.QoEStats(ctx, userID, customerID, locationID); err == nil {
		in.QoE = qoe
	} else {
		log.Debug().Err(err).Str("location_id", locationID).Msg("QoE stats unavailable")
	}

	var locationName string
	if loc, err := s.api.Location(ctx, userID, customerID, locationID); err == nil && loc != nil {
		in.Location = loc
		locationName = loc.Name
	}

	verdict := analysis.AnalyzeLocationHealth(in)
	rendered := report.RenderHealth(locationName, verdict)

	s.snapshot(ctx, userID, customerID, locationID, models.ReportTypeHealth, verdict.Summary, verdict)
	s.emitHealthEvents(userID, customerID, locationID, verdict)

	return &HealthResult{Verdict: verdict, Report: rendered}, nil
}

// UptimeResult bundles uptime metrics with the rendered report.
type UptimeResult struct {
	Metrics *models.UptimeMetrics `json:"metrics"`
	Report  string                `json:"report"`
}

// Uptime runs the uptime/incident analysis over a query window.
func (s *Service) Uptime(ctx context.Context, userID uuid.UUID, customerID, locationID, granularity string, limit int) (*UptimeResult, error) {
	stats, err := s.api.OnlineStats(ctx, userID, customerID, locationID, granularity, limit)
	if err != nil {
		return nil, err
	}

	metrics := analysis.AnalyzeUptime(stats.LocationState, granularity, limit)
	locationName := s.locationName(ctx, userID, customerID, locationID)
	rendered := report.RenderUptime(locationName, metrics)

	summary := fmt.Sprintf("%s uptime %.1f%% (%s)", metrics.TimeRangeLabel, metrics.UptimePercent, metrics.StatusLabel)
	s.snapshot(ctx, userID, customerID, locationID, models.ReportTypeUptime, summary, metrics)

	if metrics.Trend == models.TrendDeclining {
		s.emit(&models.EventLog{
			UserID:      &userID,
			CustomerID:  customerID,
			LocationID:  locationID,
			Type:        models.EventTypeUptimeDeclining,
			Level:       models.EventLevelWarning,
			Description: fmt.Sprintf("connectivity trend declining over %s", metrics.TimeRangeLabel),
		})
	}

	return &UptimeResult{Metrics: metrics, Report: rendered}, nil
}

// WANResult bundles a WAN analysis with the rendered report.
type WANResult struct {
	Analysis *models.WANAnalysis `json:"analysis"`
	Report   string              `json:"report"`
}

// WANConsumption runs the WAN throughput analysis over the last days.
func (s *Service) WANConsumption(ctx context.Context, userID uuid.UUID, customerID, locationID string, days int) (*WANResult, error) {
	stats, err := s.api.WANStats(ctx, userID, customerID, locationID, days)
	if err != nil {
		return nil, err
	}

	wan := analysis.AnalyzeWANConsumption(stats.Samples)
	locationName := s.locationName(ctx, userID, customerID, locationID)
	rendered := report.RenderWAN(locationName, wan)

	summary := fmt.Sprintf("WAN peak %.2f Mbps down, avg %.2f Mbps", wan.PeakRxMbps, wan.AvgRxMbps)
	s.snapshot(ctx, userID, customerID, locationID, models.ReportTypeWAN, summary, wan)

	// A peak far above the 95th percentile marks a burst worth surfacing.
	if wan.ValidSamples > 0 && wan.P95RxMbps > 0 && wan.PeakRxMbps > 2*wan.P95RxMbps {
		s.emit(&models.EventLog{
			UserID:      &userID,
			CustomerID:  customerID,
			LocationID:  locationID,
			Type:        models.EventTypeWANAnomaly,
			Level:       models.EventLevelWarning,
			Description: fmt.Sprintf("download peak %.2f Mbps exceeds twice the 95th percentile", wan.PeakRxMbps),
		})
	}

	return &WANResult{Analysis: wan, Report: rendered}, nil
}

// LocationOverview renders the location metadata summary with backhaul state.
func (s *Service) LocationOverview(ctx context.Context, userID uuid.UUID, customerID, locationID string) (string, error) {
	loc, err := s.api.Location(ctx, userID, customerID, locationID)
	if err != nil {
		return "", err
	}

	backhaul, err := s.api.Backhaul(ctx, userID, customerID, locationID)
	if err != nil {
		log.Debug().Err(err).Str("location_id", locationID).Msg("Backhaul state unavailable")
		backhaul = nil
	}

	return report.RenderLocation(loc, backhaul), nil
}

// NodesReport renders the plain node listing for a location.
func (s *Service) NodesReport(ctx context.Context, userID uuid.UUID, customerID, locationID string) (string, error) {
	nodes, err := s.api.Nodes(ctx, userID, customerID, locationID)
	if err != nil {
		return "", err
	}
	return report.RenderNodes(nodes), nil
}

// DevicesReport renders the plain device listing for a location.
func (s *Service) DevicesReport(ctx context.Context, userID uuid.UUID, customerID, locationID string) (string, error) {
	devices, err := s.api.Devices(ctx, userID, customerID, locationID)
	if err != nil {
		return "", err
	}
	return report.RenderDevices(devices), nil
}

// WiFiReport renders the configured WiFi network listing for a location.
func (s *Service) WiFiReport(ctx context.Context, userID uuid.UUID, customerID, locationID string) (string, error) {
	networks, err := s.api.WiFiNetworks(ctx, userID, customerID, locationID)
	if err != nil {
		return "", err
	}
	return report.RenderWiFi(networks), nil
}

// NodeDetails fetches a single node by id.
func (s *Service) NodeDetails(ctx context.Context, userID uuid.UUID, nodeID string) (*models.Node, error) {
	return s.api.NodeDetails(ctx, userID, nodeID)
}

// SearchCustomers lists customers visible to the caller's partner scope.
func (s *Service) SearchCustomers(ctx context.Context, userID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	return s.api.SearchCustomers(ctx, userID, limit)
}

// ReportHistory lists stored report snapshots for a location.
func (s *Service) ReportHistory(ctx context.Context, userID uuid.UUID, customerID, locationID string, limit, offset int) ([]*models.ReportSnapshot, int64, error) {
	if s.store == nil {
		return nil, 0, nil
	}
	return s.store.ListReportSnapshots(ctx, storage.ReportFilters{
		UserID:     &userID,
		CustomerID: customerID,
		LocationID: locationID,
	}, limit, offset)
}

// locationName resolves the location display name, empty on any failure.
func (s *Service) locationName(ctx context.Context, userID uuid.UUID, customerID, locationID string) string {
	loc, err := s.api.Location(ctx, userID, customerID, locationID)
	if err != nil || loc == nil {
		return ""
	}
	return loc.Name
}

// snapshot persists one analyzer run when a store is configured. Persistence
// failures are logged, never surfaced; the report itself already succeeded.
func (s *Service) snapshot(ctx context.Context, userID uuid.UUID, customerID, locationID string, typ models.ReportType, summary string, details interface{}) {
	if s.store == nil {
		return
	}

	snap := &models.ReportSnapshot{
		UserID:     userID,
		CustomerID: customerID,
		LocationID: locationID,
		Type:       typ,
		Summary:    summary,
		Details:    toVariables(details),
	}
	if err := s.store.CreateReportSnapshot(ctx, snap); err != nil {
		log.Warn().Err(err).Str("location_id", locationID).Str("type", string(typ)).Msg("Report snapshot not stored")
	}
}

// emitHealthEvents maps a health verdict onto monitor events.
func (s *Service) emitHealthEvents(userID uuid.UUID, customerID, locationID string, v *models.HealthVerdict) {
	if !v.Online {
		s.emit(&models.EventLog{
			UserID:      &userID,
			CustomerID:  customerID,
			LocationID:  locationID,
			Type:        models.EventTypeLocationOffline,
			Level:       models.EventLevelError,
			Description: v.Summary,
		})
		return
	}

	for _, name := range v.DisconnectedNodes {
		s.emit(&models.EventLog{
			UserID:      &userID,
			CustomerID:  customerID,
			LocationID:  locationID,
			Type:        models.EventTypePodDisconnected,
			Level:       models.EventLevelWarning,
			Description: name + " is disconnected",
		})
	}

	for _, warning := range v.Warnings {
		if warning == "" {
			continue
		}
		// Degraded service shows up as a warning on an online location.
		if isDegradedWarning(warning) {
			s.emit(&models.EventLog{
				UserID:      &userID,
				CustomerID:  customerID,
				LocationID:  locationID,
				Type:        models.EventTypeDegradedService,
				Level:       models.EventLevelWarning,
				Description: warning,
			})
		}
	}
}

func isDegradedWarning(warning string) bool {
	return strings.HasPrefix(warning, "Service level is")
}

func (s *Service) emit(event *models.EventLog) {
	if s.store != nil {
		if err := s.store.CreateEventLog(context.Background(), event); err != nil {
			log.Warn().Err(err).Str("type", string(event.Type)).Msg("Event not stored")
		}
	}
	if s.sink != nil {
		s.sink.Publish(event)
	}
}

// toVariables converts a struct into the generic JSON map stored with a
// snapshot.
func toVariables(v interface{}) models.Variables {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out models.Variables
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
