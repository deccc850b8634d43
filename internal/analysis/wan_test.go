package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptes-nms/panoptes-server/internal/models"
)

func f(v float64) *float64 { return &v }

func wanSample(ts time.Time, rxMB, txMB, rxMbps, txMbps float64) models.WANSample {
	return models.WANSample{
		Timestamp:  ts,
		RxMB:       f(rxMB),
		TxMB:       f(txMB),
		RxPeakMbps: f(rxMbps),
		TxPeakMbps: f(txMbps),
	}
}

func TestWANPeakAverageAndPercentile(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// RX peaks 10,20,...,100 over ten samples.
	samples := make([]models.WANSample, 0, 10)
	for i := 1; i <= 10; i++ {
		samples = append(samples, wanSample(
			base.Add(time.Duration(i)*15*time.Minute),
			100, 50, float64(i*10), float64(i*5),
		))
	}

	a := AnalyzeWANConsumption(samples)

	assert.Equal(t, 100.0, a.PeakRxMbps)
	require.NotNil(t, a.PeakRxAt)
	assert.Equal(t, base.Add(10*15*time.Minute), *a.PeakRxAt)
	assert.Equal(t, 55.0, a.AvgRxMbps)

	// Nearest-rank: index floor(0.95*10)=9 of the ascending sort.
	assert.Equal(t, 100.0, a.P95RxMbps)

	assert.Equal(t, 50.0, a.PeakTxMbps)
	assert.Equal(t, 27.5, a.AvgTxMbps)
	assert.Equal(t, 50.0, a.P95TxMbps)

	assert.Equal(t, 1000.0, a.TotalRxMB)
	assert.Equal(t, 500.0, a.TotalTxMB)
	assert.Equal(t, 100.0, a.DataQualityPercent)
	assert.Equal(t, 10, a.TotalSamples)
	assert.Equal(t, 10, a.ValidSamples)
	assert.Equal(t, 0, a.NullSamples)
}

func TestWANPeakTieKeepsFirstSeen(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	samples := []models.WANSample{
		wanSample(base, 1, 1, 40, 10),
		wanSample(base.Add(15*time.Minute), 1, 1, 40, 10),
	}

	a := AnalyzeWANConsumption(samples)
	require.NotNil(t, a.PeakRxAt)
	assert.Equal(t, base, *a.PeakRxAt)
}

func TestWANPartialSamplesCountTowardTotalsOnly(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	samples := []models.WANSample{
		wanSample(base, 100, 10, 30, 5),
		// Missing throughput: excluded from stats, bytes still total.
		{Timestamp: base.Add(15 * time.Minute), RxMB: f(200), TxMB: f(20)},
		// Entirely empty sample.
		{Timestamp: base.Add(30 * time.Minute)},
	}

	a := AnalyzeWANConsumption(samples)

	assert.Equal(t, 3, a.TotalSamples)
	assert.Equal(t, 1, a.ValidSamples)
	assert.Equal(t, 2, a.NullSamples)
	assert.Equal(t, 300.0, a.TotalRxMB)
	assert.Equal(t, 30.0, a.TotalTxMB)
	assert.Equal(t, 30.0, a.PeakRxMbps)
	assert.Equal(t, 30.0, a.AvgRxMbps)
	assert.InDelta(t, 33.33, a.DataQualityPercent, 0.01)
}

func TestWANEmptyInput(t *testing.T) {
	a := AnalyzeWANConsumption(nil)

	assert.Equal(t, 0, a.TotalSamples)
	assert.Equal(t, 0.0, a.DataQualityPercent)
	assert.Nil(t, a.PeakRxAt)
	assert.Empty(t, a.PeakWindows)
}

func TestWANPeakActivityWindows(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(hour int, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	// Quiet baseline at 10 Mbps, a moderate bump at 20:00 and a heavy
	// evening peak at 21:00.
	var samples []models.WANSample
	for hour := 0; hour < 8; hour++ {
		samples = append(samples, wanSample(at(hour, 0), 10, 5, 10, 2))
	}
	samples = append(samples,
		wanSample(at(20, 0), 50, 10, 30, 6),
		wanSample(at(21, 0), 90, 20, 60, 12),
		wanSample(at(21, 15), 90, 20, 60, 12),
	)

	a := AnalyzeWANConsumption(samples)

	// Overall average: (8*10 + 30 + 2*60) / 11 ≈ 20.9; 21:00 exceeds 2x,
	// 30 Mbps at 20:00 exceeds 1.5x but not 2x.
	require.Len(t, a.PeakWindows, 2)
	assert.Equal(t, 21, a.PeakWindows[0].Hour)
	assert.Equal(t, "High activity", a.PeakWindows[0].Label)
	assert.Equal(t, 20, a.PeakWindows[1].Hour)
	assert.Equal(t, "Moderate activity", a.PeakWindows[1].Label)
}

func TestWANNoWindowsOnZeroAverage(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	samples := []models.WANSample{
		wanSample(base, 0, 0, 0, 0),
		wanSample(base.Add(15*time.Minute), 0, 0, 0, 0),
	}

	a := AnalyzeWANConsumption(samples)
	assert.Empty(t, a.PeakWindows)
	assert.Equal(t, 0.0, a.PeakRxMbps)
}

func TestPercentile95NearestRank(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"two values", []float64{1, 2}, 2},
		{"twenty values", seq(20), 20},   // floor(0.95*20)=19
		{"hundred values", seq(100), 96}, // floor(0.95*100)=95
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentile95(tt.values))
		})
	}
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}
