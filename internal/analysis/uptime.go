package analysis

import (
	"fmt"
	"strings"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Trend threshold in percentage points between the two half-windows.
const trendThreshold = 5.0

// Minimum sample count for a meaningful trend split.
const trendMinSamples = 4

// AnalyzeUptime reduces an online/offline state time series to uptime
// metrics. Samples are treated as chronological as given.
//
// Incident policy: transition counting. Each transition into the "offline"
// state is one incident; a run of consecutive offline samples counts once.
func AnalyzeUptime(samples []models.StateSample, granularity string, limit int) *models.UptimeMetrics {
	m := &models.UptimeMetrics{
		Incidents:      []models.Incident{},
		TotalCount:     len(samples),
		Trend:          models.TrendStable,
		TimeRangeLabel: TimeRangeLabel(granularity, limit),
	}

	previous := ""
	for i := range samples {
		state := strings.ToLower(samples[i].Value)

		switch state {
		case "online":
			m.OnlineCount++
		case "offline":
			m.OfflineCount++
			if previous != "offline" {
				m.Incidents = append(m.Incidents, models.Incident{
					Timestamp: samples[i].Timestamp,
					State:     state,
				})
			}
		default:
			// Anything that is neither online nor offline (degraded,
			// intermittent, unknown) counts as intermittent.
			m.IntermittentCount++
		}

		previous = state
	}

	m.IncidentCount = len(m.Incidents)

	if m.TotalCount > 0 {
		m.UptimePercent = float64(m.OnlineCount) / float64(m.TotalCount) * 100
	}

	m.Trend = connectivityTrend(samples)
	m.StatusLabel = StatusLabel(m.UptimePercent)

	return m
}

// connectivityTrend splits the window at the midpoint and compares the two
// halves' uptime percentages. Under four samples the trend is always stable.
func connectivityTrend(samples []models.StateSample) models.Trend {
	if len(samples) < trendMinSamples {
		return models.TrendStable
	}

	mid := len(samples) / 2
	first := uptimePercent(samples[:mid])
	second := uptimePercent(samples[mid:])

	diff := second - first
	switch {
	case diff > trendThreshold:
		return models.TrendImproving
	case diff < -trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func uptimePercent(samples []models.StateSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	online := 0
	for i := range samples {
		if strings.EqualFold(samples[i].Value, "online") {
			online++
		}
	}
	return float64(online) / float64(len(samples)) * 100
}

// StatusLabel maps an uptime percentage to a qualitative tier. Lower bounds
// are inclusive.
func StatusLabel(uptimePercent float64) string {
	switch {
	case uptimePercent >= 99.5:
		return "Excellent"
	case uptimePercent >= 98.0:
		return "Good"
	case uptimePercent >= 95.0:
		return "Fair"
	case uptimePercent >= 90.0:
		return "Poor"
	default:
		return "Critical"
	}
}

// TimeRangeLabel renders the requested window as a human label.
func TimeRangeLabel(granularity string, limit int) string {
	switch granularity {
	case "hours":
		if limit == 1 {
			return "Last 1 Hour"
		}
		return fmt.Sprintf("Last %d Hours", limit)
	case "days":
		if limit == 1 {
			return "Last 24 Hours"
		}
		return fmt.Sprintf("Last %d Days", limit)
	default:
		return fmt.Sprintf("Last %d %s", limit, granularity)
	}
}
