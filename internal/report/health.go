package report

import (
	"fmt"
	"strings"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// RenderHealth renders a health verdict as a plain-text report.
func RenderHealth(locationName string, v *models.HealthVerdict) string {
	if v == nil {
		return "No data available"
	}

	var b strings.Builder

	name := locationName
	if name == "" {
		name = "Unknown Location"
	}
	fmt.Fprintf(&b, "Location Health: %s\n", name)
	fmt.Fprintf(&b, "%s\n", v.Summary)

	state := "OFFLINE"
	if v.Online {
		state = "ONLINE"
	}
	fmt.Fprintf(&b, "\nStatus: %s\n", state)
	fmt.Fprintf(&b, "Connected devices: %s\n", formatCount(v.ConnectedDevices))

	if len(v.Pods) > 0 {
		b.WriteString("\nPods:\n")
		for _, pod := range v.Pods {
			kind := "pod"
			if pod.Gateway {
				kind = "gateway"
			}
			conn := "disconnected"
			if pod.Connected {
				conn = "connected"
			}
			fmt.Fprintf(&b, "  - %s (%s): %s", pod.Name, kind, conn)
			if pod.HealthStatus != "" {
				fmt.Fprintf(&b, ", health %s", pod.HealthStatus)
			}
			if pod.AlertCount > 0 {
				fmt.Fprintf(&b, ", %d alert(s)", pod.AlertCount)
			}
			b.WriteByte('\n')
		}
	}

	if len(v.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, issue := range v.Issues {
			fmt.Fprintf(&b, "  ! %s\n", issue)
		}
	}

	if len(v.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warning := range v.Warnings {
			fmt.Fprintf(&b, "  * %s\n", warning)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderNodes renders the raw node list.
func RenderNodes(nodes []models.Node) string {
	if len(nodes) == 0 {
		return "No nodes found for this location."
	}

	var b strings.Builder
	b.WriteString("Nodes/Gateways:\n")
	for i := range nodes {
		node := &nodes[i]
		status := node.ConnectionState
		if status == "" {
			status = node.Status
		}
		if status == "" {
			status = "unknown"
		}
		model := node.Model
		if model == "" {
			model = notAvailable
		}
		firmware := node.FirmwareVersion
		if firmware == "" {
			firmware = notAvailable
		}

		fmt.Fprintf(&b, "- %s\n", node.DisplayName())
		fmt.Fprintf(&b, "    Status: %s\n", status)
		fmt.Fprintf(&b, "    Model: %s\n", model)
		fmt.Fprintf(&b, "    Firmware: %s\n", firmware)
	}
	return strings.TrimRight(b.String(), "\n")
}

// maxListedDevices bounds device listings for readability.
const maxListedDevices = 10

// RenderDevices renders the raw device list, capped at ten entries.
func RenderDevices(devices []models.Device) string {
	if len(devices) == 0 {
		return "No devices connected to this location."
	}

	var b strings.Builder
	b.WriteString("Connected Devices:\n")

	shown := devices
	if len(shown) > maxListedDevices {
		shown = shown[:maxListedDevices]
	}

	for i := range shown {
		device := &shown[i]
		kind := device.Kind
		if kind == "" {
			kind = "Unknown"
		}
		mac := device.MAC
		if mac == "" {
			mac = notAvailable
		}
		status := "disconnected"
		if device.Connected() {
			status = "connected"
		}

		fmt.Fprintf(&b, "- %s (%s)\n", device.DisplayName(), kind)
		fmt.Fprintf(&b, "    MAC: %s\n", mac)
		fmt.Fprintf(&b, "    Status: %s\n", status)
	}

	if len(devices) > maxListedDevices {
		fmt.Fprintf(&b, "... and %d more devices\n", len(devices)-maxListedDevices)
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderWiFi renders the configured WiFi network list.
func RenderWiFi(networks []models.WiFiNetwork) string {
	if len(networks) == 0 {
		return "No WiFi networks configured for this location."
	}

	var b strings.Builder
	b.WriteString("WiFi Networks:\n")
	for i := range networks {
		network := &networks[i]
		ssid := network.SSID
		if ssid == "" {
			ssid = notAvailable
		}
		state := "disabled"
		if network.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(&b, "- %s: %s\n", ssid, state)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderLocation renders location metadata with backhaul status.
func RenderLocation(loc *models.Location, backhaul *models.Backhaul) string {
	var b strings.Builder
	b.WriteString("Location Overview:\n")

	name := "Unknown Location"
	if loc != nil && loc.Name != "" {
		name = loc.Name
	}
	fmt.Fprintf(&b, "%s\n", name)

	status := "unknown"
	if backhaul != nil && backhaul.Status != "" {
		status = backhaul.Status
	}
	fmt.Fprintf(&b, "\nInternet: %s\n", status)

	if loc != nil && loc.SpeedTestAverages != nil {
		fmt.Fprintf(&b, "Download: %.2f Mbps | Upload: %.2f Mbps\n",
			loc.SpeedTestAverages.DownloadMbps, loc.SpeedTestAverages.UploadMbps)
	}

	devices := 0
	if loc != nil {
		devices = loc.ConnectedDevicesCount
	}
	fmt.Fprintf(&b, "Connected Devices: %s", formatCount(devices))

	return b.String()
}
