package report

import (
	"fmt"
	"strings"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// RenderWAN renders a WAN consumption analysis as a plain-text report.
func RenderWAN(locationName string, a *models.WANAnalysis) string {
	if a == nil || a.TotalSamples == 0 {
		return "No data available"
	}

	var b strings.Builder

	name := locationName
	if name == "" {
		name = "Unknown Location"
	}
	fmt.Fprintf(&b, "%s — WAN Consumption Report\n", truncate(name, 40))
	fmt.Fprintf(&b, "Samples: %s (data quality %s)\n\n", formatCount(a.TotalSamples), formatPercent(a.DataQualityPercent))

	if a.ValidSamples == 0 {
		b.WriteString("No samples with complete throughput data.\n")
		fmt.Fprintf(&b, "Total transferred: ↓ %s  ↑ %s", formatMB(a.TotalRxMB), formatMB(a.TotalTxMB))
		return b.String()
	}

	b.WriteString("Throughput (download / upload):\n")
	fmt.Fprintf(&b, "  Peak:    %s / %s\n", formatMbps(a.PeakRxMbps), formatMbps(a.PeakTxMbps))
	if a.PeakRxAt != nil {
		fmt.Fprintf(&b, "           peak download at %s\n", a.PeakRxAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "  Average: %s / %s\n", formatMbps(a.AvgRxMbps), formatMbps(a.AvgTxMbps))
	fmt.Fprintf(&b, "  95th:    %s / %s\n", formatMbps(a.P95RxMbps), formatMbps(a.P95TxMbps))

	fmt.Fprintf(&b, "\nTotal transferred: ↓ %s  ↑ %s\n", formatMB(a.TotalRxMB), formatMB(a.TotalTxMB))

	if len(a.PeakWindows) > 0 {
		b.WriteString("\nPeak activity windows (UTC):\n")
		for _, w := range a.PeakWindows {
			fmt.Fprintf(&b, "  %02d:00-%02d:59  %s  (%s)\n", w.Hour, w.Hour, formatMbps(w.AvgRxMbps), w.Label)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
