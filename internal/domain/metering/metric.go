// Package metering provides domain models for per-team usage metering:
// metric types, billing period calculation, and the usage counter entity.
package metering

// MetricType represents a countable resource type subject to a plan limit
type MetricType string

const (
	// MetricActiveSurveys counts surveys currently open for responses
	MetricActiveSurveys MetricType = "active_surveys"
	// MetricSurveyResponses counts completed responses in the billing period
	MetricSurveyResponses MetricType = "survey_responses"
	// MetricTeamMembers counts seats occupied on the team
	MetricTeamMembers MetricType = "team_members"
)

// IsValid checks if the metric type is valid
func (m MetricType) IsValid() bool {
	switch m {
	case MetricActiveSurveys, MetricSurveyResponses, MetricTeamMembers:
		return true
	default:
		return false
	}
}

// String returns the string representation of the metric type
func (m MetricType) String() string {
	return string(m)
}

// AllMetricTypes lists every known metric type.
func AllMetricTypes() []MetricType {
	return []MetricType{MetricActiveSurveys, MetricSurveyResponses, MetricTeamMembers}
}

// Unlimited marks a metric without a numeric cap.
const Unlimited int64 = -1

// LimitSet maps metric types to their numeric limits.
type LimitSet map[MetricType]int64

// LimitFor returns the limit for a metric. Metrics absent from the set are
// treated as zero (nothing allowed).
func (ls LimitSet) LimitFor(metric MetricType) int64 {
	limit, ok := ls[metric]
	if !ok {
		return 0
	}
	return limit
}

// IsUnlimited reports whether the metric has no numeric cap.
func (ls LimitSet) IsUnlimited(metric MetricType) bool {
	return ls.LimitFor(metric) == Unlimited
}

// Clone returns a copy of the limit set.
func (ls LimitSet) Clone() LimitSet {
	out := make(LimitSet, len(ls))
	for k, v := range ls {
		out[k] = v
	}
	return out
}
