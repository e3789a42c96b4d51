package evaluator

import (
	"math"
	"time"

	"silo-backend/internal/models"
)

// Dual-probe divergence bounds
const (
	// TemperatureDivergence is the absolute difference above which
	// ambient and core temperatures are considered diverging.
	TemperatureDivergence = 5.0

	// RelativeDivergencePct applies to all non-temperature types.
	RelativeDivergencePct = 20.0

	// AmbientRecencyWindow bounds how old an ambient reading may be to
	// be compared against a core reading.
	AmbientRecencyWindow = 30 * time.Minute
)

// CompareProbes checks a core reading against the latest ambient reading.
// Returns nil when the ambient reading is missing, outside the recency
// window, or no shared sensor type diverges.
func CompareProbes(ambient, core *models.Reading) *models.DivergenceEvent {
	if ambient == nil || core == nil {
		return nil
	}
	age := core.Timestamp.Sub(ambient.Timestamp)
	if age < 0 {
		age = -age
	}
	if age > AmbientRecencyWindow {
		return nil
	}

	var divergences []models.TypeDivergence
	for sensorType, coreValue := range core.Values {
		ambientValue, ok := ambient.Values[sensorType]
		if !ok {
			continue
		}

		diff := coreValue.Value - ambientValue.Value
		absDiff := math.Abs(diff)

		relativePct := 0.0
		if ambientValue.Value != 0 {
			relativePct = absDiff / math.Abs(ambientValue.Value) * 100
		}

		diverges := false
		if sensorType == models.SensorTemperature {
			diverges = absDiff > TemperatureDivergence
		} else {
			diverges = relativePct > RelativeDivergencePct
		}

		if diverges {
			divergences = append(divergences, models.TypeDivergence{
				SensorType:   sensorType,
				AmbientValue: ambientValue.Value,
				CoreValue:    coreValue.Value,
				Difference:   diff,
				RelativePct:  relativePct,
			})
		}
	}

	if len(divergences) == 0 {
		return nil
	}

	return &models.DivergenceEvent{
		DeviceID:    core.DeviceID,
		Timestamp:   core.Timestamp,
		Divergences: divergences,
	}
}

// ProbeStats summarizes one probe's series for a sensor type
type ProbeStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// TypeComparison compares ambient and core series for one sensor type
type TypeComparison struct {
	SensorType  string     `json:"sensor_type"`
	Ambient     ProbeStats `json:"ambient"`
	Core        ProbeStats `json:"core"`
	MeanDiff    float64    `json:"mean_diff"`
	Correlation float64    `json:"correlation"`
}

// BatchCompare computes per-type stats over paired ambient/core series.
// Series are matched positionally; correlation uses the shorter length.
func BatchCompare(ambientSeries, coreSeries map[string][]float64) []TypeComparison {
	var comparisons []TypeComparison

	for sensorType, coreValues := range coreSeries {
		ambientValues, ok := ambientSeries[sensorType]
		if !ok || len(ambientValues) == 0 || len(coreValues) == 0 {
			continue
		}

		ambientStats := computeStats(ambientValues)
		coreStats := computeStats(coreValues)

		comparisons = append(comparisons, TypeComparison{
			SensorType:  sensorType,
			Ambient:     ambientStats,
			Core:        coreStats,
			MeanDiff:    coreStats.Mean - ambientStats.Mean,
			Correlation: pearson(ambientValues, coreValues),
		})
	}

	return comparisons
}

func computeStats(values []float64) ProbeStats {
	stats := ProbeStats{Count: len(values), Min: values[0], Max: values[0]}

	sum := 0.0
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(values)))

	return stats
}

// pearson computes the Pearson correlation over the common prefix of
// the two series. Returns 0 when either series has no variance.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
