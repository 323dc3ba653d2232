package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrGatherFailed = errors.New("metrics gather failed")
)

// Gather collects the current metric families from the custom registry.
func Gather() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, errors.Join(ErrGatherFailed, err)
	}
	out := make(map[string]float64, len(families))
	for _, fam := range families {
		var sum float64
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				sum += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				sum += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				sum += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		out[fam.GetName()] = sum
	}
	return out, nil
}
