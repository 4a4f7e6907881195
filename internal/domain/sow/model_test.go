package sow

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalize_VolumeMultipliers(t *testing.T) {
	s := &SOW{Forecast: VolumeForecasting{
		ExpectedDailyVolume:   100,
		ExpectedWeeklyVolume:  1,   // stale, must be recomputed
		ExpectedMonthlyVolume: 999, // stale, must be recomputed
	}}
	s.Normalize()
	if s.Forecast.ExpectedWeeklyVolume != 500 {
		t.Errorf("weekly = %d, want 500", s.Forecast.ExpectedWeeklyVolume)
	}
	if s.Forecast.ExpectedMonthlyVolume != 2200 {
		t.Errorf("monthly = %d, want 2200", s.Forecast.ExpectedMonthlyVolume)
	}
}

func TestValidate_DateOrdering(t *testing.T) {
	day := func(d int) *time.Time {
		t := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	base := func() *SOW {
		return &SOW{ClientID: uuid.New(), ServiceDetails: ServiceDetails{Name: "Coding"}}
	}

	s := base()
	s.StartDate, s.EndDate = day(1), day(2)
	if err := s.Validate(); err != nil {
		t.Errorf("valid dates rejected: %v", err)
	}

	s = base()
	s.StartDate, s.EndDate = day(2), day(1)
	if err := s.Validate(); err == nil {
		t.Error("start after end must be rejected")
	}

	s = base()
	s.StartDate, s.EndDate = day(1), day(1)
	if err := s.Validate(); err == nil {
		t.Error("start equal to end must be rejected")
	}

	s = base()
	s.StartDate = day(1)
	if err := s.Validate(); err != nil {
		t.Errorf("single date must be allowed: %v", err)
	}
}

func TestValidate_Required(t *testing.T) {
	s := &SOW{ClientID: uuid.New()}
	if err := s.Validate(); err == nil {
		t.Error("missing service name must be rejected")
	}
	s = &SOW{ServiceDetails: ServiceDetails{Name: "Coding"}}
	if err := s.Validate(); err == nil {
		t.Error("missing client id must be rejected")
	}
	s = &SOW{ClientID: uuid.New(), ServiceDetails: ServiceDetails{Name: "Coding"}, Status: "Bogus"}
	if err := s.Validate(); err == nil {
		t.Error("invalid status must be rejected")
	}
}

func TestAddMonthlyTrend_DedupByYearMonth(t *testing.T) {
	s := &SOW{}
	s.AddMonthlyTrend(MonthlyTrend{Year: 2025, Month: 3, Volume: 100})
	s.AddMonthlyTrend(MonthlyTrend{Year: 2025, Month: 3, Volume: 250})

	if len(s.Metrics.MonthlyTrends) != 1 {
		t.Fatalf("trend count = %d, want 1", len(s.Metrics.MonthlyTrends))
	}
	if s.Metrics.MonthlyTrends[0].Volume != 250 {
		t.Errorf("entry not replaced: volume = %d", s.Metrics.MonthlyTrends[0].Volume)
	}
}

func TestAddMonthlyTrend_CapAt24MostRecent(t *testing.T) {
	s := &SOW{}
	for i := 0; i < 30; i++ {
		s.AddMonthlyTrend(MonthlyTrend{Year: 2020 + i/12, Month: i%12 + 1, Volume: i})
	}

	trends := s.Metrics.MonthlyTrends
	if len(trends) != 24 {
		t.Fatalf("trend count = %d, want 24", len(trends))
	}
	// Oldest 6 entries dropped, newest kept.
	if trends[0].Year != 2020 || trends[0].Month != 7 {
		t.Errorf("oldest retained = %d-%d, want 2020-7", trends[0].Year, trends[0].Month)
	}
	last := trends[len(trends)-1]
	if last.Year != 2022 || last.Month != 6 {
		t.Errorf("newest retained = %d-%d, want 2022-6", last.Year, last.Month)
	}

	seen := make(map[[2]int]bool)
	for _, tr := range trends {
		key := [2]int{tr.Year, tr.Month}
		if seen[key] {
			t.Errorf("duplicate (year, month): %v", key)
		}
		seen[key] = true
	}
}

func TestNewSOWID_Format(t *testing.T) {
	id := NewSOWID(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if len(id) != len("SOW-2025-AABBCC") || id[:9] != "SOW-2025-" {
		t.Errorf("unexpected id: %s", id)
	}
}
