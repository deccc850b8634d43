// Package analysis contains the pure health, consumption and uptime
// analyzers. Functions here do no I/O and tolerate partially-missing
// upstream payloads; missing fields degrade the output instead of failing.
package analysis

import (
	"fmt"
	"strings"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// HealthInput bundles the raw payloads feeding a location health analysis.
// Everything except Nodes is optional.
type HealthInput struct {
	Nodes        []models.Node
	Devices      []models.Device
	ServiceLevel *models.ServiceLevel
	QoE          *models.QoEStats
	Location     *models.Location
}

// Health summary strings. The branch priority is strict:
// offline > pods disconnected > health warnings > degraded service > clear.
const (
	summaryNoPods   = "LOCATION IS OFFLINE - no pods found"
	summaryOffline  = "LOCATION IS OFFLINE - no connected gateway"
	summaryDegraded = "DEGRADED SERVICE - service level is not full service"
	summaryAllClear = "ALL SYSTEMS OPERATIONAL"
)

// AnalyzeLocationHealth reduces the raw location payloads to a structured
// health verdict. The location counts as online iff at least one
// gateway-classified node is connected.
func AnalyzeLocationHealth(in HealthInput) *models.HealthVerdict {
	verdict := &models.HealthVerdict{
		Issues:            []string{},
		Warnings:          []string{},
		DisconnectedNodes: []string{},
		Pods:              []models.PodDetail{},
	}

	connectedGateways := 0
	for i := range in.Nodes {
		node := &in.Nodes[i]
		name := node.DisplayName()
		connected := node.Connected()

		detail := models.PodDetail{
			Name:         name,
			Connected:    connected,
			Gateway:      node.IsGateway(),
			BackhaulType: node.BackhaulType,
			AlertCount:   len(node.Alerts),
		}
		if node.Health != nil {
			detail.HealthStatus = node.Health.Status
		}
		if node.ConnectedDeviceCount != nil {
			detail.ConnectedDevices = *node.ConnectedDeviceCount
		}
		verdict.Pods = append(verdict.Pods, detail)

		if !connected {
			verdict.Issues = append(verdict.Issues, fmt.Sprintf("%s is disconnected", name))
			verdict.DisconnectedNodes = append(verdict.DisconnectedNodes, name)
			continue
		}

		if node.IsGateway() {
			connectedGateways++
		}

		if node.Health != nil {
			switch strings.ToLower(node.Health.Status) {
			case "fair", "poor":
				verdict.Warnings = append(verdict.Warnings,
					fmt.Sprintf("%s health is %s", name, strings.ToLower(node.Health.Status)))
			}
		}

		for _, alert := range node.Alerts {
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("%s has active alert: %s", name, alertLabel(alert)))
		}
	}

	verdict.Online = connectedGateways > 0
	verdict.ConnectedDevices = countConnectedDevices(in)

	if in.QoE != nil {
		for _, stat := range in.QoE.TrafficClassStats {
			if stat.Poor() {
				class := stat.TrafficClass
				if class == "" {
					class = "Unknown"
				}
				verdict.Warnings = append(verdict.Warnings,
					fmt.Sprintf("Poor QoE detected for %s traffic", class))
			}
		}
	}

	verdict.Summary = summarize(verdict, in)
	return verdict
}

// countConnectedDevices prefers an explicit device list; otherwise it sums
// the per-node counters of connected nodes.
func countConnectedDevices(in HealthInput) int {
	if in.Devices != nil {
		count := 0
		for i := range in.Devices {
			if in.Devices[i].Connected() {
				count++
			}
		}
		return count
	}

	count := 0
	for i := range in.Nodes {
		node := &in.Nodes[i]
		if node.Connected() && node.ConnectedDeviceCount != nil {
			count += *node.ConnectedDeviceCount
		}
	}
	return count
}

// summarize picks exactly one summary following the strict priority order.
func summarize(v *models.HealthVerdict, in HealthInput) string {
	if !v.Online {
		if len(in.Nodes) == 0 {
			return summaryNoPods
		}
		return summaryOffline
	}

	if n := len(v.Issues); n > 0 {
		return fmt.Sprintf("ONLINE but %d %s disconnected", n, plural(n, "pod", "pods"))
	}

	if n := len(v.Warnings); n > 0 {
		return fmt.Sprintf("ONLINE but %d health %s", n, plural(n, "issue", "issues"))
	}

	if !in.ServiceLevel.FullService() {
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("Service level is %q", in.ServiceLevel.Status))
		return summaryDegraded
	}

	return summaryAllClear
}

func alertLabel(a models.NodeAlert) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Type != "" {
		return a.Type
	}
	return "unnamed alert"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
