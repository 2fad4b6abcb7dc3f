package enums

// RiskLevel classifies an in-flight drop by age. Ordered by severity.
type RiskLevel string

const (
	RiskLevelOK       RiskLevel = "ok"
	RiskLevelAtRisk   RiskLevel = "at_risk"
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelBreached RiskLevel = "breached"
)

var riskSeverity = map[RiskLevel]int{
	RiskLevelOK:       0,
	RiskLevelAtRisk:   1,
	RiskLevelCritical: 2,
	RiskLevelBreached: 3,
}

func (r RiskLevel) String() string {
	return string(r)
}

// Severity ranks levels; unknown values rank below ok.
func (r RiskLevel) Severity() int {
	if s, ok := riskSeverity[r]; ok {
		return s
	}
	return -1
}

// NeedsAlert reports whether the level is included in the ops SLA alert.
func (r RiskLevel) NeedsAlert() bool {
	return r == RiskLevelCritical || r == RiskLevelBreached
}

// IssueUrgency classifies an open ticket by age.
type IssueUrgency string

const (
	IssueUrgencyOK      IssueUrgency = "ok"
	IssueUrgencyOverdue IssueUrgency = "overdue"
)
