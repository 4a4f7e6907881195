package sow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SOW lifecycle statuses.
const (
	StatusDraft      = "Draft"
	StatusActive     = "Active"
	StatusOnHold     = "On Hold"
	StatusCompleted  = "Completed"
	StatusTerminated = "Terminated"
	StatusSuspended  = "Suspended"
)

var ValidStatuses = map[string]bool{
	StatusDraft: true, StatusActive: true, StatusOnHold: true,
	StatusCompleted: true, StatusTerminated: true, StatusSuspended: true,
}

const (
	weeklyVolumeMultiplier  = 5
	monthlyVolumeMultiplier = 22
	maxMonthlyTrends        = 24
)

type ServiceDetails struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ServiceType string   `json:"serviceType,omitempty"`
	Scope       []string `json:"scope,omitempty"`
}

type ContractDetails struct {
	BillingModel string  `json:"billingModel,omitempty"`
	Rate         float64 `json:"rate,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	PaymentTerms string  `json:"paymentTerms,omitempty"`
}

type PerformanceTargets struct {
	DailyTarget        int     `json:"dailyTarget,omitempty"`
	WeeklyTarget       int     `json:"weeklyTarget,omitempty"`
	MonthlyTarget      int     `json:"monthlyTarget,omitempty"`
	QualityTarget      float64 `json:"qualityTarget,omitempty"`
	SLATarget          float64 `json:"slaTarget,omitempty"`
	ProductivityTarget float64 `json:"productivityTarget,omitempty"`
}

// VolumeForecasting stores the daily expectation; the weekly and monthly
// figures are recomputed from it on every save.
type VolumeForecasting struct {
	ExpectedDailyVolume   int `json:"expectedDailyVolume,omitempty"`
	ExpectedWeeklyVolume  int `json:"expectedWeeklyVolume,omitempty"`
	ExpectedMonthlyVolume int `json:"expectedMonthlyVolume,omitempty"`
}

type ResourcePlanning struct {
	PlannedHeadcount       int      `json:"plannedHeadcount,omitempty"`
	RequiredSkills         []string `json:"requiredSkills,omitempty"`
	RequiredCertifications []string `json:"requiredCertifications,omitempty"`
	RoleLevel              string   `json:"roleLevel,omitempty"`
}

type ActivityMetrics struct {
	TotalProcessed int        `json:"totalProcessed"`
	TotalDenied    int        `json:"totalDenied"`
	TotalAppealed  int        `json:"totalAppealed"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// MonthlyTrend is one (year, month) history entry in the trend list.
type MonthlyTrend struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Volume        int     `json:"volume"`
	QualityScore  float64 `json:"qualityScore,omitempty"`
	SLACompliance float64 `json:"slaCompliance,omitempty"`
	DenialRate    float64 `json:"denialRate,omitempty"`
}

type BenchmarkComparison struct {
	InternalTarget  float64 `json:"internalTarget,omitempty"`
	IndustryAverage float64 `json:"industryAverage,omitempty"`
	BestInClass     float64 `json:"bestInClass,omitempty"`
}

type VolumeMetrics struct {
	DailyActual   int `json:"dailyActual,omitempty"`
	WeeklyActual  int `json:"weeklyActual,omitempty"`
	MonthlyActual int `json:"monthlyActual,omitempty"`
}

type PerformanceMetrics struct {
	QualityScore      float64 `json:"qualityScore,omitempty"`
	SLACompliance     float64 `json:"slaCompliance,omitempty"`
	ProductivityScore float64 `json:"productivityScore,omitempty"`
}

type FinancialMetrics struct {
	RevenueCollected float64 `json:"revenueCollected,omitempty"`
	DenialRate       float64 `json:"denialRate,omitempty"`
	CollectionRate   float64 `json:"collectionRate,omitempty"`
	AvgDaysInAR      float64 `json:"avgDaysInAr,omitempty"`
}

type EmployeeMetrics struct {
	ActiveCount        int     `json:"activeCount,omitempty"`
	AvgClaimsPerDay    float64 `json:"avgClaimsPerDay,omitempty"`
	AttritionThisMonth int     `json:"attritionThisMonth,omitempty"`
}

type RCMMetrics struct {
	Volume        VolumeMetrics       `json:"volume,omitempty"`
	Performance   PerformanceMetrics  `json:"performance,omitempty"`
	Financial     FinancialMetrics    `json:"financial,omitempty"`
	Employee      EmployeeMetrics     `json:"employee,omitempty"`
	MonthlyTrends []MonthlyTrend      `json:"monthlyTrends,omitempty"`
	Benchmarks    BenchmarkComparison `json:"benchmarks,omitempty"`
}

// WorkflowStage is one ordered step of the claim workflow with its SLA and
// escalation rules.
type WorkflowStage struct {
	Name                 string  `json:"name"`
	Order                int     `json:"order"`
	SLAHours             int     `json:"slaHours,omitempty"`
	SLACompliance        float64 `json:"slaCompliance,omitempty"`
	AssignedRole         string  `json:"assignedRole,omitempty"`
	QARequired           bool    `json:"qaRequired,omitempty"`
	EscalationAfterHours int     `json:"escalationAfterHours,omitempty"`
}

type WorkflowChange struct {
	ChangedBy *uuid.UUID `json:"changedBy,omitempty"`
	ChangedAt *time.Time `json:"changedAt,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

type WorkflowConfig struct {
	Stages    []WorkflowStage  `json:"stages,omitempty"`
	Version   int              `json:"version,omitempty"`
	ChangeLog []WorkflowChange `json:"changeLog,omitempty"`
}

type SystemInfo struct {
	SyncStatus string     `json:"syncStatus,omitempty"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

type AuditInfo struct {
	CreatedBy      *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastModifiedBy *uuid.UUID `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
}

// SOW is a statement of work: one service contract scoped to a client.
// Section groups are JSONB; scalar columns exist for filtering.
type SOW struct {
	ID                uuid.UUID          `db:"id" json:"id"`
	SOWID             string             `db:"sow_id" json:"sowId"`
	CompanyID         uuid.UUID          `db:"company_id" json:"companyId"`
	ClientID          uuid.UUID          `db:"client_id" json:"clientId"`
	Status            string             `db:"status" json:"status"`
	StartDate         *time.Time         `db:"start_date" json:"startDate,omitempty"`
	EndDate           *time.Time         `db:"end_date" json:"endDate,omitempty"`
	ServiceDetails    ServiceDetails     `db:"service_details" json:"serviceDetails"`
	ContractDetails   ContractDetails    `db:"contract_details" json:"contractDetails"`
	Targets           PerformanceTargets `db:"performance_targets" json:"performanceTargets"`
	Forecast          VolumeForecasting  `db:"volume_forecasting" json:"volumeForecasting"`
	Resources         ResourcePlanning   `db:"resource_planning" json:"resourcePlanning"`
	Activity          ActivityMetrics    `db:"activity_metrics" json:"activityMetrics"`
	Metrics           RCMMetrics         `db:"rcm_metrics" json:"rcmMetrics"`
	Workflow          WorkflowConfig     `db:"workflow_config" json:"workflowConfig"`
	SystemInfo        SystemInfo         `db:"system_info" json:"systemInfo"`
	Audit             AuditInfo          `db:"audit_info" json:"auditInfo"`
	AssignedEmployees []uuid.UUID        `db:"assigned_employees" json:"assignedEmployees,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updatedAt"`
}

// Normalize recomputes the volume invariants. Weekly and monthly expected
// volumes are always derived from the daily figure.
func (s *SOW) Normalize() {
	s.Forecast.ExpectedWeeklyVolume = s.Forecast.ExpectedDailyVolume * weeklyVolumeMultiplier
	s.Forecast.ExpectedMonthlyVolume = s.Forecast.ExpectedDailyVolume * monthlyVolumeMultiplier
}

// Validate checks required fields, enum membership and date ordering.
func (s *SOW) Validate() error {
	if strings.TrimSpace(s.ServiceDetails.Name) == "" {
		return fmt.Errorf("serviceDetails.name is required")
	}
	if s.ClientID == uuid.Nil {
		return fmt.Errorf("clientId is required")
	}
	if s.Status != "" && !ValidStatuses[s.Status] {
		return fmt.Errorf("invalid sow status: %s", s.Status)
	}
	if s.StartDate != nil && s.EndDate != nil && !s.StartDate.Before(*s.EndDate) {
		return fmt.Errorf("startDate must be before endDate")
	}
	return nil
}

// AddMonthlyTrend inserts or replaces the (year, month) entry and keeps the
// list at the 24 most recent entries, newest last.
func (s *SOW) AddMonthlyTrend(entry MonthlyTrend) {
	trends := s.Metrics.MonthlyTrends[:0:0]
	for _, t := range s.Metrics.MonthlyTrends {
		if t.Year == entry.Year && t.Month == entry.Month {
			continue
		}
		trends = append(trends, t)
	}
	trends = append(trends, entry)

	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].Year != trends[j].Year {
			return trends[i].Year < trends[j].Year
		}
		return trends[i].Month < trends[j].Month
	})
	if len(trends) > maxMonthlyTrends {
		trends = trends[len(trends)-maxMonthlyTrends:]
	}
	s.Metrics.MonthlyTrends = trends
}

// NewSOWID generates a human-readable identifier like SOW-2025-3FA2B1.
func NewSOWID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("SOW-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b[:])))
}
