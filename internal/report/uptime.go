package report

import (
	"fmt"
	"strings"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// trendLabel maps a trend to its display form.
func trendLabel(t models.Trend) string {
	switch t {
	case models.TrendImproving:
		return "Improving"
	case models.TrendDeclining:
		return "Declining"
	default:
		return "Stable"
	}
}

// RenderUptime renders uptime metrics as a plain-text dashboard.
func RenderUptime(locationName string, m *models.UptimeMetrics) string {
	if m == nil || m.TotalCount == 0 {
		return "No data available"
	}

	var b strings.Builder

	name := locationName
	if name == "" {
		name = "Unknown Location"
	}

	fmt.Fprintf(&b, "%s — Connection Status Report\n", truncate(name, 40))
	fmt.Fprintf(&b, "%s\n\n", m.TimeRangeLabel)

	fmt.Fprintf(&b, "Uptime: %s  %s\n", formatPercent(m.UptimePercent), progressBar(m.UptimePercent, 8))
	fmt.Fprintf(&b, "Status: %s\n", m.StatusLabel)
	fmt.Fprintf(&b, "Trend: %s\n", trendLabel(m.Trend))
	fmt.Fprintf(&b, "Incidents: %s\n", formatCount(m.IncidentCount))

	b.WriteString("\nDetailed breakdown:\n")
	fmt.Fprintf(&b, "  Online:       %4s (%s)\n", formatCount(m.OnlineCount), sharePercent(m.OnlineCount, m.TotalCount))
	fmt.Fprintf(&b, "  Intermittent: %4s (%s)\n", formatCount(m.IntermittentCount), sharePercent(m.IntermittentCount, m.TotalCount))
	fmt.Fprintf(&b, "  Offline:      %4s (%s)\n", formatCount(m.OfflineCount), sharePercent(m.OfflineCount, m.TotalCount))

	if len(m.Incidents) > 0 {
		b.WriteString("\nIncidents:\n")
		for _, inc := range m.Incidents {
			fmt.Fprintf(&b, "  - %s went %s\n", inc.Timestamp.UTC().Format("2006-01-02 15:04 MST"), inc.State)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func sharePercent(count, total int) string {
	if total == 0 {
		return notAvailable
	}
	return formatPercent(float64(count) / float64(total) * 100)
}
