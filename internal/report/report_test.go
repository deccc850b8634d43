package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands("0"))
	assert.Equal(t, "999", groupThousands("999"))
	assert.Equal(t, "1,000", groupThousands("1000"))
	assert.Equal(t, "1,234,567", groupThousands("1234567"))
	assert.Equal(t, "-42,000", groupThousands("-42000"))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "████████", progressBar(100, 8))
	assert.Equal(t, "████░░░░", progressBar(50, 8))
	assert.Equal(t, "░░░░░░░░", progressBar(0, 8))
	// Out-of-range values clamp instead of panicking.
	assert.Equal(t, "████████", progressBar(140, 8))
	assert.Equal(t, "░░░░░░░░", progressBar(-5, 8))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly", truncate("exactly", 7))
	assert.Equal(t, "a ver…", truncate("a very long name", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestRenderHealth(t *testing.T) {
	v := &models.HealthVerdict{
		Online:            true,
		Issues:            []string{"Garage is disconnected"},
		Warnings:          []string{"Attic health is fair"},
		DisconnectedNodes: []string{"Garage"},
		Pods: []models.PodDetail{
			{Name: "Living Room", Connected: true, Gateway: true, HealthStatus: "excellent"},
			{Name: "Garage", Connected: false},
		},
		ConnectedDevices: 12,
		Summary:          "ONLINE but 1 pod disconnected",
	}

	out := RenderHealth("Home", v)

	assert.Contains(t, out, "Location Health: Home")
	assert.Contains(t, out, "ONLINE but 1 pod disconnected")
	assert.Contains(t, out, "Connected devices: 12")
	assert.Contains(t, out, "Living Room (gateway): connected, health excellent")
	assert.Contains(t, out, "! Garage is disconnected")
	assert.Contains(t, out, "* Attic health is fair")
}

func TestRenderHealthNilVerdict(t *testing.T) {
	assert.Equal(t, "No data available", RenderHealth("Home", nil))
}

func TestRenderUptime(t *testing.T) {
	m := &models.UptimeMetrics{
		UptimePercent:     75.0,
		OnlineCount:       3,
		OfflineCount:      1,
		IntermittentCount: 0,
		TotalCount:        4,
		IncidentCount:     1,
		Incidents: []models.Incident{
			{Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), State: "offline"},
		},
		Trend:          models.TrendDeclining,
		StatusLabel:    "Critical",
		TimeRangeLabel: "Last 24 Hours",
	}

	out := RenderUptime("Office", m)

	assert.Contains(t, out, "Office — Connection Status Report")
	assert.Contains(t, out, "Last 24 Hours")
	assert.Contains(t, out, "Uptime: 75.0%")
	assert.Contains(t, out, "██████░░")
	assert.Contains(t, out, "Trend: Declining")
	assert.Contains(t, out, "Online:          3 (75.0%)")
	assert.Contains(t, out, "2026-03-01 09:00 UTC went offline")
}

func TestRenderUptimeNoData(t *testing.T) {
	assert.Equal(t, "No data available", RenderUptime("Office", nil))
	assert.Equal(t, "No data available", RenderUptime("Office", &models.UptimeMetrics{}))
}

func TestRenderWAN(t *testing.T) {
	peakAt := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	a := &models.WANAnalysis{
		PeakRxMbps:         120.5,
		PeakRxAt:           &peakAt,
		PeakTxMbps:         18.25,
		AvgRxMbps:          40.123,
		AvgTxMbps:          6.5,
		P95RxMbps:          110.0,
		P95TxMbps:          15.0,
		TotalRxMB:          2048,
		TotalTxMB:          512,
		DataQualityPercent: 96.875,
		TotalSamples:       96,
		ValidSamples:       93,
		NullSamples:        3,
		PeakWindows: []models.ActivityWindow{
			{Hour: 21, AvgRxMbps: 95.0, Label: "High activity"},
		},
	}

	out := RenderWAN("Home", a)

	assert.Contains(t, out, "WAN Consumption Report")
	assert.Contains(t, out, "data quality 96.9%")
	assert.Contains(t, out, "Peak:    120.50 Mbps / 18.25 Mbps")
	assert.Contains(t, out, "Average: 40.12 Mbps / 6.50 Mbps")
	assert.Contains(t, out, "95th:    110.00 Mbps / 15.00 Mbps")
	assert.Contains(t, out, "↓ 2.00 GB")
	assert.Contains(t, out, "↑ 512 MB")
	assert.Contains(t, out, "21:00-21:59")
	assert.Contains(t, out, "High activity")
}

func TestRenderWANNoData(t *testing.T) {
	assert.Equal(t, "No data available", RenderWAN("Home", nil))
	assert.Equal(t, "No data available", RenderWAN("Home", &models.WANAnalysis{}))
}

func TestRenderWANNoValidSamples(t *testing.T) {
	a := &models.WANAnalysis{TotalSamples: 4, NullSamples: 4, TotalRxMB: 100, TotalTxMB: 10}
	out := RenderWAN("Home", a)

	assert.Contains(t, out, "No samples with complete throughput data.")
	assert.Contains(t, out, "100 MB")
}

func TestRenderNodesAndDevices(t *testing.T) {
	assert.Equal(t, "No nodes found for this location.", RenderNodes(nil))
	assert.Equal(t, "No devices connected to this location.", RenderDevices(nil))

	nodes := []models.Node{
		{Nickname: "Living Room", ConnectionState: "connected", Model: "Pod X", FirmwareVersion: "3.1.2"},
		{ID: "node-2", Status: "offline"},
	}
	out := RenderNodes(nodes)
	assert.Contains(t, out, "- Living Room")
	assert.Contains(t, out, "Model: Pod X")
	assert.Contains(t, out, "- node-2")
	assert.Contains(t, out, "Status: offline")
	assert.Contains(t, out, "Model: N/A")

	on := true
	devices := make([]models.Device, 0, 12)
	for i := 0; i < 12; i++ {
		devices = append(devices, models.Device{MAC: "aa:bb", Kind: "phone", ConnectedFlag: &on})
	}
	out = RenderDevices(devices)
	assert.Contains(t, out, "... and 2 more devices")
	assert.Equal(t, maxListedDevices, strings.Count(out, "MAC:"))
}

func TestRenderLocation(t *testing.T) {
	loc := &models.Location{
		Name:                  "Home",
		ConnectedDevicesCount: 1500,
		SpeedTestAverages:     &models.SpeedTestAverage{DownloadMbps: 250.5, UploadMbps: 42.1},
	}
	out := RenderLocation(loc, &models.Backhaul{Status: "connected"})

	require.Contains(t, out, "Home")
	assert.Contains(t, out, "Internet: connected")
	assert.Contains(t, out, "Download: 250.50 Mbps | Upload: 42.10 Mbps")
	assert.Contains(t, out, "Connected Devices: 1,500")

	out = RenderLocation(nil, nil)
	assert.Contains(t, out, "Unknown Location")
	assert.Contains(t, out, "Internet: unknown")
}

func TestRenderWiFi(t *testing.T) {
	out := RenderWiFi([]models.WiFiNetwork{
		{SSID: "HomeNet", Enabled: true},
		{SSID: "GuestNet", Enabled: false},
	})

	require.Contains(t, out, "WiFi Networks:")
	assert.Contains(t, out, "- HomeNet: enabled")
	assert.Contains(t, out, "- GuestNet: disabled")

	assert.Equal(t, "No WiFi networks configured for this location.", RenderWiFi(nil))
}
