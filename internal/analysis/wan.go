package analysis

import (
	"sort"
	"time"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

// Activity window thresholds relative to the overall RX average.
const (
	windowCandidateFactor = 1.5
	windowHighFactor      = 2.0
	maxPeakWindows        = 3
)

// AnalyzeWANConsumption reduces a WAN throughput time series to peak,
// average and 95th-percentile bandwidth plus transfer totals and peak
// activity windows. Sample order is not assumed to be chronological.
//
// A sample is valid only when all four numeric fields are present; invalid
// samples are skipped for peak/average/percentile but their byte fields
// still accumulate into the totals wherever individually present.
func AnalyzeWANConsumption(samples []models.WANSample) *models.WANAnalysis {
	a := &models.WANAnalysis{
		PeakWindows:  []models.ActivityWindow{},
		TotalSamples: len(samples),
	}

	var rxValues, txValues []float64
	hourSums := map[int]float64{}
	hourCounts := map[int]int{}

	for i := range samples {
		s := &samples[i]

		if s.RxMB != nil {
			a.TotalRxMB += *s.RxMB
		}
		if s.TxMB != nil {
			a.TotalTxMB += *s.TxMB
		}

		if !s.Complete() {
			continue
		}
		a.ValidSamples++

		rx, tx := *s.RxPeakMbps, *s.TxPeakMbps
		rxValues = append(rxValues, rx)
		txValues = append(txValues, tx)

		// Strict greater-than keeps the first-seen value on ties.
		if rx > a.PeakRxMbps || a.PeakRxAt == nil {
			a.PeakRxMbps = rx
			a.PeakRxAt = timePtr(s.Timestamp)
		}
		if tx > a.PeakTxMbps || a.PeakTxAt == nil {
			a.PeakTxMbps = tx
			a.PeakTxAt = timePtr(s.Timestamp)
		}

		hour := s.Timestamp.UTC().Hour()
		hourSums[hour] += rx
		hourCounts[hour]++
	}

	a.NullSamples = a.TotalSamples - a.ValidSamples

	if a.TotalSamples > 0 {
		a.DataQualityPercent = float64(a.ValidSamples) / float64(a.TotalSamples) * 100
	}

	if a.ValidSamples == 0 {
		return a
	}

	a.AvgRxMbps = mean(rxValues)
	a.AvgTxMbps = mean(txValues)
	a.P95RxMbps = percentile95(rxValues)
	a.P95TxMbps = percentile95(txValues)
	a.PeakWindows = peakActivityWindows(hourSums, hourCounts, a.AvgRxMbps)

	return a
}

// peakActivityWindows returns up to three hour-of-day windows whose mean RX
// exceeds 1.5x the overall average, ranked by descending mean. A zero
// overall average produces no windows.
func peakActivityWindows(sums map[int]float64, counts map[int]int, overallAvg float64) []models.ActivityWindow {
	windows := []models.ActivityWindow{}
	if overallAvg <= 0 {
		return windows
	}

	for hour, sum := range sums {
		hourMean := sum / float64(counts[hour])
		if hourMean <= overallAvg*windowCandidateFactor {
			continue
		}

		label := "Moderate activity"
		if hourMean > overallAvg*windowHighFactor {
			label = "High activity"
		}

		windows = append(windows, models.ActivityWindow{
			Hour:      hour,
			AvgRxMbps: hourMean,
			Label:     label,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].AvgRxMbps != windows[j].AvgRxMbps {
			return windows[i].AvgRxMbps > windows[j].AvgRxMbps
		}
		return windows[i].Hour < windows[j].Hour
	})

	if len(windows) > maxPeakWindows {
		windows = windows[:maxPeakWindows]
	}
	return windows
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile95 is the nearest-rank estimator: the value at index
// floor(0.95*N) of the ascending-sorted values, clamped to the last index.
func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(0.95 * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func timePtr(t time.Time) *time.Time { return &t }
