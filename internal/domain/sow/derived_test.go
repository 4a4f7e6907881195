package sow

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// sowWithMetrics builds a snapshot where every risk input can be set
// directly. Utilization is assigned/planned*100, so planned=100 makes the
// assigned count the utilization percentage.
func sowWithMetrics(quality, sla, denial float64, assigned int) *SOW {
	s := &SOW{
		Resources: ResourcePlanning{PlannedHeadcount: 100},
		Metrics: RCMMetrics{
			Performance: PerformanceMetrics{QualityScore: quality, SLACompliance: sla},
			Financial:   FinancialMetrics{DenialRate: denial},
		},
	}
	for i := 0; i < assigned; i++ {
		s.AssignedEmployees = append(s.AssignedEmployees, uuid.New())
	}
	return s
}

func TestRiskScore_BoundaryTable(t *testing.T) {
	cases := []struct {
		name     string
		quality  float64
		sla      float64
		util     int
		denial   float64
		expected int
	}{
		// Healthy snapshot contributes nothing.
		{"all healthy", 95, 98, 90, 5, 0},

		// Quality boundaries: <80 +30, <90 +15.
		{"quality 79", 79, 98, 90, 5, 30},
		{"quality 80", 80, 98, 90, 5, 15},
		{"quality 89", 89, 98, 90, 5, 15},
		{"quality 90", 90, 98, 90, 5, 0},

		// SLA boundaries: <85 +25, <95 +10.
		{"sla 84", 95, 84, 90, 5, 25},
		{"sla 85", 95, 85, 90, 5, 10},
		{"sla 94", 95, 94, 90, 5, 10},
		{"sla 95", 95, 95, 90, 5, 0},

		// Utilization boundaries: >120 +20, >100 +10.
		{"util 100", 95, 98, 100, 5, 0},
		{"util 101", 95, 98, 101, 5, 10},
		{"util 120", 95, 98, 120, 5, 10},
		{"util 121", 95, 98, 121, 5, 20},

		// Denial boundaries: >15 +15, >10 +8.
		{"denial 10", 95, 98, 90, 10, 0},
		{"denial 11", 95, 98, 90, 11, 8},
		{"denial 15", 95, 98, 90, 15, 8},
		{"denial 16", 95, 98, 90, 16, 15},

		// Worst case sums and stays within the cap.
		{"everything bad", 50, 50, 150, 50, 90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sowWithMetrics(tc.quality, tc.sla, tc.denial, tc.util)
			if got := RiskScore(s); got != tc.expected {
				t.Errorf("RiskScore = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestRiskScore_AlwaysInRange(t *testing.T) {
	inputs := []*SOW{
		sowWithMetrics(0, 0, 100, 500),
		sowWithMetrics(100, 100, 0, 0),
		{},
	}
	for _, s := range inputs {
		got := RiskScore(s)
		if got < 0 || got > 100 {
			t.Errorf("RiskScore out of range: %d", got)
		}
	}
}

func TestCapacityUtilization(t *testing.T) {
	s := sowWithMetrics(95, 98, 5, 50)
	if got := CapacityUtilization(s); got != 50 {
		t.Errorf("utilization = %v, want 50", got)
	}
	s.Resources.PlannedHeadcount = 0
	if got := CapacityUtilization(s); got != 0 {
		t.Errorf("zero planned headcount should yield 0, got %v", got)
	}
}

func TestOverallPerformanceScore_CapsProductivity(t *testing.T) {
	s := &SOW{Metrics: RCMMetrics{Performance: PerformanceMetrics{
		QualityScore: 90, SLACompliance: 90, ProductivityScore: 150,
	}}}
	want := (90.0 + 90.0 + 100.0) / 3
	if got := OverallPerformanceScore(s); got != want {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestWorkflowEfficiency(t *testing.T) {
	s := &SOW{}
	if got := WorkflowEfficiency(s); got != 0 {
		t.Errorf("no stages should yield 0, got %v", got)
	}
	s.Workflow.Stages = []WorkflowStage{
		{Name: "Intake", SLACompliance: 90},
		{Name: "Coding", SLACompliance: 70},
	}
	if got := WorkflowEfficiency(s); got != 80 {
		t.Errorf("efficiency = %v, want 80", got)
	}
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	cases := []struct {
		name string
		end  *time.Time
		want bool
	}{
		{"no end date", nil, false},
		{"ends in 10 days", day(10 * 24 * time.Hour), true},
		{"ends in exactly 30 days", day(30 * 24 * time.Hour), true},
		{"ends in 31 days", day(31 * 24 * time.Hour), false},
		{"already ended", day(-24 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &SOW{EndDate: tc.end}
			if got := IsExpiringSoon(s, now); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProjectionsVsActuals(t *testing.T) {
	cases := []struct {
		name     string
		expected int
		actual   int
		want     string
	}{
		{"no forecast", 0, 100, "No Forecast"},
		{"exceeding", 100, 115, "Exceeding"},
		{"on track above", 100, 105, "On Track"},
		{"on track below", 100, 92, "On Track"},
		{"at risk", 100, 80, "At Risk"},
		{"off track", 100, 50, "Off Track"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &SOW{
				Forecast: VolumeForecasting{ExpectedMonthlyVolume: tc.expected},
				Metrics:  RCMMetrics{Volume: VolumeMetrics{MonthlyActual: tc.actual}},
			}
			if got := ProjectionsVsActuals(s); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMonthlyTargetVolume_FallsBackToForecast(t *testing.T) {
	s := &SOW{
		Targets:  PerformanceTargets{MonthlyTarget: 2000},
		Forecast: VolumeForecasting{ExpectedMonthlyVolume: 1500},
	}
	if got := MonthlyTargetVolume(s); got != 2000 {
		t.Errorf("explicit target ignored: %d", got)
	}
	s.Targets.MonthlyTarget = 0
	if got := MonthlyTargetVolume(s); got != 1500 {
		t.Errorf("forecast fallback = %d, want 1500", got)
	}
}
