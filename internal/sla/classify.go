package sla

import (
	"sort"
	"time"

	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Thresholds are ages measured from the drop date (or ticket creation).
type Thresholds struct {
	AtRisk       time.Duration
	Critical     time.Duration
	Breached     time.Duration
	IssueOverdue time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AtRisk:       36 * time.Hour,
		Critical:     48 * time.Hour,
		Breached:     72 * time.Hour,
		IssueOverdue: 48 * time.Hour,
	}
}

// ThresholdsFromConfig fills unset values from the defaults.
func ThresholdsFromConfig(cfg config.SLAConfig) Thresholds {
	th := DefaultThresholds()
	if cfg.AtRiskAfter > 0 {
		th.AtRisk = cfg.AtRiskAfter
	}
	if cfg.CriticalAfter > 0 {
		th.Critical = cfg.CriticalAfter
	}
	if cfg.BreachedAfter > 0 {
		th.Breached = cfg.BreachedAfter
	}
	if cfg.IssueOverdue > 0 {
		th.IssueOverdue = cfg.IssueOverdue
	}
	return th
}

// ClassifyDrop checks the most severe threshold first. Drops that are Ready
// or Collected are no longer on the clock and are always ok.
func ClassifyDrop(status enums.DropStatus, age time.Duration, th Thresholds) enums.RiskLevel {
	if !status.IsInFlight() {
		return enums.RiskLevelOK
	}
	switch {
	case age >= th.Breached:
		return enums.RiskLevelBreached
	case age >= th.Critical:
		return enums.RiskLevelCritical
	case age >= th.AtRisk:
		return enums.RiskLevelAtRisk
	}
	return enums.RiskLevelOK
}

// ClassifyIssue marks open tickets older than the overdue threshold.
func ClassifyIssue(status enums.IssueStatus, age time.Duration, th Thresholds) enums.IssueUrgency {
	if status.IsOpen() && age >= th.IssueOverdue {
		return enums.IssueUrgencyOverdue
	}
	return enums.IssueUrgencyOK
}

type DropRisk struct {
	Drop     drops.Drop      `json:"drop"`
	Level    enums.RiskLevel `json:"level"`
	AgeHours int             `json:"age_hours"`
}

type IssueRisk struct {
	Issue    issues.Issue       `json:"issue"`
	Urgency  enums.IssueUrgency `json:"urgency"`
	AgeHours int                `json:"age_hours"`
}

type Counts struct {
	OK            int `json:"ok"`
	AtRisk        int `json:"at_risk"`
	Critical      int `json:"critical"`
	Breached      int `json:"breached"`
	OverdueIssues int `json:"overdue_issues"`
}

// Report is the classified view of everything still on the clock.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Counts      Counts      `json:"counts"`
	Drops       []DropRisk  `json:"drops"`
	Issues      []IssueRisk `json:"issues"`
}

// Evaluate classifies in-flight drops and open tickets as of now. Both lists
// come back most severe first, then oldest first.
func Evaluate(now time.Time, dropList []drops.Drop, issueList []issues.Issue, th Thresholds) Report {
	report := Report{GeneratedAt: now.UTC(), Drops: []DropRisk{}, Issues: []IssueRisk{}}

	for _, d := range dropList {
		if !d.Status.IsInFlight() {
			continue
		}
		age := now.Sub(d.DroppedAt())
		level := ClassifyDrop(d.Status, age, th)
		switch level {
		case enums.RiskLevelBreached:
			report.Counts.Breached++
		case enums.RiskLevelCritical:
			report.Counts.Critical++
		case enums.RiskLevelAtRisk:
			report.Counts.AtRisk++
		default:
			report.Counts.OK++
		}
		report.Drops = append(report.Drops, DropRisk{Drop: d, Level: level, AgeHours: hours(age)})
	}

	for _, i := range issueList {
		if !i.Status.IsOpen() {
			continue
		}
		age := now.Sub(i.Created)
		urgency := ClassifyIssue(i.Status, age, th)
		if urgency == enums.IssueUrgencyOverdue {
			report.Counts.OverdueIssues++
		}
		report.Issues = append(report.Issues, IssueRisk{Issue: i, Urgency: urgency, AgeHours: hours(age)})
	}

	sort.SliceStable(report.Drops, func(a, b int) bool {
		sa, sb := report.Drops[a].Level.Severity(), report.Drops[b].Level.Severity()
		if sa != sb {
			return sa > sb
		}
		return report.Drops[a].AgeHours > report.Drops[b].AgeHours
	})
	sort.SliceStable(report.Issues, func(a, b int) bool {
		oa := report.Issues[a].Urgency == enums.IssueUrgencyOverdue
		ob := report.Issues[b].Urgency == enums.IssueUrgencyOverdue
		if oa != ob {
			return oa
		}
		return report.Issues[a].AgeHours > report.Issues[b].AgeHours
	})
	return report
}

func hours(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Hour)
}
