package models

import (
	"strings"
	"time"
)

// Cloud API payload shapes. The upstream schema is only informally stable, so
// every field that can be missing is a pointer or carries a zero-value
// fallback; analyzers must never assume presence.

// Node represents a network node (a mesh pod or gateway) at a location.
type Node struct {
	ID              string      `json:"id"`
	Nickname        string      `json:"nickname"`
	DefaultName     string      `json:"defaultName"`
	Model           string      `json:"model"`
	FirmwareVersion string      `json:"firmwareVersion"`
	ConnectionState string      `json:"connectionState"`
	Status          string      `json:"status"`
	BackhaulType    string      `json:"backhaulType"`
	Health          *NodeHealth `json:"health,omitempty"`
	Alerts          []NodeAlert `json:"alerts,omitempty"`

	ConnectedDeviceCount *int `json:"connectedDeviceCount,omitempty"`
}

// NodeHealth is the per-node health sub-structure.
type NodeHealth struct {
	Status string `json:"status"`
	Score  *int   `json:"score,omitempty"`
}

// NodeAlert is an active alert flagged on a node.
type NodeAlert struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// DisplayName returns the best human name for the node.
func (n *Node) DisplayName() string {
	if n.Nickname != "" {
		return n.Nickname
	}
	if n.DefaultName != "" {
		return n.DefaultName
	}
	if n.ID != "" {
		return n.ID
	}
	return "Unknown Pod"
}

// Connected reports whether the node's connection state means connected.
// Upstream endpoints report either "connected" or "online" depending on
// variant; both are accepted, case-insensitively.
func (n *Node) Connected() bool {
	state := n.ConnectionState
	if state == "" {
		state = n.Status
	}
	state = strings.ToLower(state)
	return state == "connected" || state == "online"
}

// IsGateway reports whether the node provides the internet uplink.
// Classification rule: backhaul type "ethernet" marks a gateway, anything
// else (wifi, mesh, empty) is an extender pod.
func (n *Node) IsGateway() bool {
	return strings.EqualFold(n.BackhaulType, "ethernet")
}

// Device represents a client device at a location.
type Device struct {
	MAC      string `json:"mac"`
	Nickname string `json:"nickname"`
	Kind     string `json:"type"`

	// ConnectedFlag is the explicit boolean some endpoint variants return;
	// others only return a string status.
	ConnectedFlag *bool  `json:"connected,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Connected reports whether the device is currently connected.
func (d *Device) Connected() bool {
	if d.ConnectedFlag != nil {
		return *d.ConnectedFlag
	}
	return strings.EqualFold(d.Status, "connected")
}

// DisplayName returns the best human name for the device.
func (d *Device) DisplayName() string {
	if d.Nickname != "" {
		return d.Nickname
	}
	if d.MAC != "" {
		return d.MAC
	}
	return "Unknown Device"
}

// ServiceLevel is the location service-level payload.
type ServiceLevel struct {
	Status          string `json:"status"`
	ConnectionState string `json:"connectionState"`
}

// FullService reports whether the service level is unimpaired. An empty
// status (payload missing or endpoint variant without the field) counts as
// full service so that missing data never degrades the verdict on its own.
func (s *ServiceLevel) FullService() bool {
	if s == nil || s.Status == "" {
		return true
	}
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(s.Status))
	return norm == "fullservice"
}

// QoEStats is the App QoE payload, grouped by traffic class.
type QoEStats struct {
	TrafficClassStats []TrafficClassStat `json:"trafficClassStats"`
}

// TrafficClassStat is the QoE health indicator for one traffic class.
type TrafficClassStat struct {
	TrafficClass     string `json:"trafficClass"`
	Health           string `json:"health"`
	QualityIndicator string `json:"qualityIndicator"`
}

// Poor reports whether the traffic class shows a poor quality indicator.
func (t *TrafficClassStat) Poor() bool {
	indicator := t.Health
	if indicator == "" {
		indicator = t.QualityIndicator
	}
	return strings.Contains(strings.ToLower(indicator), "poor")
}

// Location is the location metadata payload.
type Location struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	ServiceID             string            `json:"serviceId"`
	ConnectedDevicesCount int               `json:"connectedDevicesCount"`
	SpeedTestAverages     *SpeedTestAverage `json:"lastThirtyDaysSpeedTestAverages,omitempty"`
}

// SpeedTestAverage holds rolling speed test averages for a location.
type SpeedTestAverage struct {
	DownloadMbps float64 `json:"downloadMbps"`
	UploadMbps   float64 `json:"uploadMbps"`
}

// WiFiNetwork is one configured WiFi network at a location.
type WiFiNetwork struct {
	SSID    string `json:"ssid"`
	Enabled bool   `json:"enabled"`
}

// Backhaul is the internet/backhaul health payload.
type Backhaul struct {
	Status string `json:"status"`
}

// WANSample is one 15-minute WAN throughput observation. Any of the four
// numeric fields may be null upstream; a sample missing any of them is
// excluded from peak/average/percentile computation.
type WANSample struct {
	Timestamp  time.Time `json:"timestamp"`
	RxMB       *float64  `json:"rxBytes,omitempty"`
	TxMB       *float64  `json:"txBytes,omitempty"`
	RxPeakMbps *float64  `json:"rxPeakMbps,omitempty"`
	TxPeakMbps *float64  `json:"txPeakMbps,omitempty"`
}

// Complete reports whether all four numeric fields are present.
func (s *WANSample) Complete() bool {
	return s.RxMB != nil && s.TxMB != nil && s.RxPeakMbps != nil && s.TxPeakMbps != nil
}

// WANStatsResponse is the reports-API payload for WAN throughput history.
type WANStatsResponse struct {
	Samples []WANSample `json:"samples"`
}

// StateSample is one time-bucketed online/offline observation of a location.
type StateSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

// StatsDateRange is the covered range of an online-stats response.
type StatsDateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// OnlineStatsResponse is the reports-API payload for online/offline history.
type OnlineStatsResponse struct {
	StatsDateRange *StatsDateRange `json:"statsDateRange,omitempty"`
	LocationState  []StateSample   `json:"locationState"`
}
