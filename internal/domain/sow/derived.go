package sow

import "time"

// Derived figures are computed from the stored snapshot on read and are
// never persisted.

// MonthlyTargetVolume prefers the explicit monthly target and falls back to
// the forecast-derived monthly volume.
func MonthlyTargetVolume(s *SOW) int {
	if s.Targets.MonthlyTarget > 0 {
		return s.Targets.MonthlyTarget
	}
	return s.Forecast.ExpectedMonthlyVolume
}

// IsExpiringSoon reports whether the contract ends within the next 30 days.
func IsExpiringSoon(s *SOW, now time.Time) bool {
	if s.EndDate == nil {
		return false
	}
	until := s.EndDate.Sub(now)
	return until >= 0 && until <= 30*24*time.Hour
}

// CapacityUtilization is assigned headcount over planned headcount as a
// percentage. Zero planned headcount yields 0.
func CapacityUtilization(s *SOW) float64 {
	if s.Resources.PlannedHeadcount <= 0 {
		return 0
	}
	return float64(len(s.AssignedEmployees)) / float64(s.Resources.PlannedHeadcount) * 100
}

// OverallPerformanceScore is the mean of quality, SLA compliance and
// productivity, with productivity capped at 100 before averaging.
func OverallPerformanceScore(s *SOW) float64 {
	productivity := s.Metrics.Performance.ProductivityScore
	if productivity > 100 {
		productivity = 100
	}
	return (s.Metrics.Performance.QualityScore + s.Metrics.Performance.SLACompliance + productivity) / 3
}

// WorkflowEfficiency is the mean SLA compliance across workflow stages.
func WorkflowEfficiency(s *SOW) float64 {
	if len(s.Workflow.Stages) == 0 {
		return 0
	}
	var sum float64
	for _, stage := range s.Workflow.Stages {
		sum += stage.SLACompliance
	}
	return sum / float64(len(s.Workflow.Stages))
}

// RiskScore is the additive threshold score over the current snapshot,
// clamped to [0,100]:
//
//	quality     < 80 → +30, else < 90 → +15
//	SLA         < 85 → +25, else < 95 → +10
//	utilization > 120 → +20, else > 100 → +10
//	denial rate > 15 → +15, else > 10 → +8
func RiskScore(s *SOW) int {
	score := 0

	switch quality := s.Metrics.Performance.QualityScore; {
	case quality < 80:
		score += 30
	case quality < 90:
		score += 15
	}

	switch sla := s.Metrics.Performance.SLACompliance; {
	case sla < 85:
		score += 25
	case sla < 95:
		score += 10
	}

	switch util := CapacityUtilization(s); {
	case util > 120:
		score += 20
	case util > 100:
		score += 10
	}

	switch denial := s.Metrics.Financial.DenialRate; {
	case denial > 15:
		score += 15
	case denial > 10:
		score += 8
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ProjectionsVsActuals buckets the variance between actual and expected
// monthly volume into a status label.
func ProjectionsVsActuals(s *SOW) string {
	expected := s.Forecast.ExpectedMonthlyVolume
	if expected <= 0 {
		return "No Forecast"
	}
	variance := (float64(s.Metrics.Volume.MonthlyActual) - float64(expected)) / float64(expected) * 100
	switch {
	case variance >= 10:
		return "Exceeding"
	case variance >= -10:
		return "On Track"
	case variance >= -25:
		return "At Risk"
	default:
		return "Off Track"
	}
}

// MetricsSnapshot bundles the stored metrics with every derived figure for
// the metrics endpoint.
type MetricsSnapshot struct {
	RCMMetrics              RCMMetrics `json:"rcmMetrics"`
	MonthlyTargetVolume     int        `json:"monthlyTargetVolume"`
	IsExpiringSoon          bool       `json:"isExpiringSoon"`
	CapacityUtilization     float64    `json:"capacityUtilization"`
	OverallPerformanceScore float64    `json:"overallPerformanceScore"`
	WorkflowEfficiency      float64    `json:"workflowEfficiency"`
	RiskScore               int        `json:"riskScore"`
	ProjectionsVsActuals    string     `json:"projectionsVsActuals"`
}

// Snapshot computes the full derived view of a SOW at a point in time.
func Snapshot(s *SOW, now time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		RCMMetrics:              s.Metrics,
		MonthlyTargetVolume:     MonthlyTargetVolume(s),
		IsExpiringSoon:          IsExpiringSoon(s, now),
		CapacityUtilization:     CapacityUtilization(s),
		OverallPerformanceScore: OverallPerformanceScore(s),
		WorkflowEfficiency:      WorkflowEfficiency(s),
		RiskScore:               RiskScore(s),
		ProjectionsVsActuals:    ProjectionsVsActuals(s),
	}
}
