package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthVerdict is the structured output of the location health analyzer.
type HealthVerdict struct {
	Online            bool        `json:"online"`
	Issues            []string    `json:"issues"`
	Warnings          []string    `json:"warnings"`
	DisconnectedNodes []string    `json:"disconnectedNodes"`
	Pods              []PodDetail `json:"pods"`
	ConnectedDevices  int         `json:"connectedDevices"`
	Summary           string      `json:"summary"`
}

// PodDetail is the per-node detail carried in a health verdict.
type PodDetail struct {
	Name             string `json:"name"`
	Connected        bool   `json:"connected"`
	Gateway          bool   `json:"gateway"`
	HealthStatus     string `json:"healthStatus,omitempty"`
	BackhaulType     string `json:"backhaulType,omitempty"`
	AlertCount       int    `json:"alertCount"`
	ConnectedDevices int    `json:"connectedDevices"`
}

// WANAnalysis is the structured output of the WAN consumption analyzer.
type WANAnalysis struct {
	PeakRxMbps float64    `json:"peakRxMbps"`
	PeakRxAt   *time.Time `json:"peakRxAt,omitempty"`
	PeakTxMbps float64    `json:"peakTxMbps"`
	PeakTxAt   *time.Time `json:"peakTxAt,omitempty"`

	AvgRxMbps float64 `json:"avgRxMbps"`
	AvgTxMbps float64 `json:"avgTxMbps"`
	P95RxMbps float64 `json:"p95RxMbps"`
	P95TxMbps float64 `json:"p95TxMbps"`

	// Totals are accumulated in megabytes, the native unit of the raw
	// sample fields, including samples with only partial data.
	TotalRxMB float64 `json:"totalRxMb"`
	TotalTxMB float64 `json:"totalTxMb"`

	// DataQualityPercent is the share of samples carrying all four fields.
	DataQualityPercent float64 `json:"dataQualityPercent"`

	PeakWindows []ActivityWindow `json:"peakWindows"`

	TotalSamples int `json:"totalSamples"`
	ValidSamples int `json:"validSamples"`
	NullSamples  int `json:"nullSamples"`
}

// ActivityWindow describes one hour-of-day (UTC) with elevated WAN usage.
type ActivityWindow struct {
	Hour      int     `json:"hour"`
	AvgRxMbps float64 `json:"avgRxMbps"`
	Label     string  `json:"label"`
}

// Trend classifies connectivity direction over a sample window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// UptimeMetrics is the structured output of the uptime/incident analyzer.
type UptimeMetrics struct {
	UptimePercent     float64 `json:"uptimePercent"`
	OnlineCount       int     `json:"onlineCount"`
	OfflineCount      int     `json:"offlineCount"`
	IntermittentCount int     `json:"intermittentCount"`
	TotalCount        int     `json:"totalCount"`

	// Incidents are transitions into the offline state; a run of
	// consecutive offline samples is a single incident.
	Incidents     []Incident `json:"incidents"`
	IncidentCount int        `json:"incidentCount"`

	Trend          Trend  `json:"trend"`
	StatusLabel    string `json:"statusLabel"`
	TimeRangeLabel string `json:"timeRangeLabel"`
}

// Incident marks one detected transition into a non-online state.
type Incident struct {
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
}

// ReportType distinguishes stored report snapshots.
type ReportType string

const (
	ReportTypeHealth ReportType = "HEALTH"
	ReportTypeUptime ReportType = "UPTIME"
	ReportTypeWAN    ReportType = "WAN"
)

// ReportSnapshot is one stored analyzer run for a location.
type ReportSnapshot struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	UserID     uuid.UUID  `json:"userId" db:"user_id"`
	CustomerID string     `json:"customerId" db:"customer_id"`
	LocationID string     `json:"locationId" db:"location_id"`
	Type       ReportType `json:"type" db:"type"`

	Summary string    `json:"summary" db:"summary"`
	Details Variables `json:"details" db:"details"`
}

// EventType represents monitor event types
type EventType string

const (
	EventTypeLocationOffline EventType = "LOCATION_OFFLINE"
	EventTypePodDisconnected EventType = "POD_DISCONNECTED"
	EventTypeDegradedService EventType = "DEGRADED_SERVICE"
	EventTypeUptimeDeclining EventType = "UPTIME_DECLINING"
	EventTypeWANAnomaly      EventType = "WAN_ANOMALY"
	EventTypeSetupCompleted  EventType = "SETUP_COMPLETED"
)

// EventLevel represents event severity levels
type EventLevel string

const (
	EventLevelInfo    EventLevel = "INFO"
	EventLevelWarning EventLevel = "WARNING"
	EventLevelError   EventLevel = "ERROR"
)

// EventLog represents a monitor event log entry
type EventLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	UserID     *uuid.UUID `json:"userId,omitempty" db:"user_id"`
	CustomerID string     `json:"customerId,omitempty" db:"customer_id"`
	LocationID string     `json:"locationId,omitempty" db:"location_id"`

	Type        EventType  `json:"type" db:"type"`
	Level       EventLevel `json:"level" db:"level"`
	Description string     `json:"description" db:"description"`

	Details Variables `json:"details,omitempty" db:"details"`
}
