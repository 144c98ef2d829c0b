package stats

type MetricTrend struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	Delta         float64 `json:"delta"`
	PercentChange float64 `json:"percent_change"`
	Direction     string  `json:"direction"`
	Improved      bool    `json:"improved"`
}

type Trend struct {
	Total                 MetricTrend `json:"total"`
	AverageResolutionDays MetricTrend `json:"average_resolution_days"`
	CompletionRate        MetricTrend `json:"completion_rate"`
}

// CompareTrend compares the current period's snapshot against the previous
// one. A nil previous means insufficient history and yields nil, not an
// error. Pure function: no I/O, identical inputs give identical outputs.
func CompareTrend(current Snapshot, previous *Snapshot) *Trend {
	if previous == nil {
		return nil
	}
	return &Trend{
		Total:                 compareMetric(float64(current.Total), float64(previous.Total), false),
		AverageResolutionDays: compareMetric(current.AverageResolutionDays, previous.AverageResolutionDays, true),
		CompletionRate:        compareMetric(current.CompletionRate, previous.CompletionRate, false),
	}
}

// lowerIsBetter inverts the improvement reading: a shrinking resolution time
// is an improvement even though its percent change is negative.
func compareMetric(current, previous float64, lowerIsBetter bool) MetricTrend {
	m := MetricTrend{
		Current:  current,
		Previous: previous,
		Delta:    round1(current - previous),
	}

	switch {
	case previous == 0 && current > 0:
		m.PercentChange = 100
	case previous == 0:
		m.PercentChange = 0
	default:
		m.PercentChange = round1((current - previous) / previous * 100)
	}

	switch {
	case m.PercentChange > 0:
		m.Direction = "up"
	case m.PercentChange < 0:
		m.Direction = "down"
	default:
		m.Direction = "flat"
	}

	if lowerIsBetter {
		m.Improved = current < previous
	} else {
		m.Improved = current > previous
	}
	return m
}
