package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type Service interface {
	Report(ctx context.Context) (*Report, error)
	// Alert emails ops a summary of critical and breached drops plus overdue
	// tickets. Nothing is sent when there is nothing to report.
	Alert(ctx context.Context) (*AlertResult, error)
}

type AlertResult struct {
	Drops   int                       `json:"drops"`
	Issues  int                       `json:"issues"`
	Sent    bool                      `json:"sent"`
	Channel enums.NotificationChannel `json:"channel,omitempty"`
}

type ServiceParams struct {
	Drops      drops.Repository
	Issues     issues.Service
	Notifier   notify.Dispatcher
	Logger     *logger.Logger
	Thresholds Thresholds
}

type service struct {
	drops    drops.Repository
	issues   issues.Service
	notifier notify.Dispatcher
	logg     *logger.Logger
	th       Thresholds
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Drops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drops repository required")
	}
	if params.Issues == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "issues service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	th := params.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &service{
		drops:    params.Drops,
		issues:   params.Issues,
		notifier: params.Notifier,
		logg:     params.Logger,
		th:       th,
		now:      time.Now,
	}, nil
}

func (s *service) Report(ctx context.Context) (*Report, error) {
	var inFlight []enums.DropStatus
	for _, st := range enums.DropStatuses() {
		if st.IsInFlight() {
			inFlight = append(inFlight, st)
		}
	}
	dropList, err := s.drops.List(ctx, drops.ListFilter{Statuses: inFlight})
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	issueList, err := s.issues.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	report := Evaluate(s.now(), dropList, issueList, s.th)
	return &report, nil
}

func (s *service) Alert(ctx context.Context) (*AlertResult, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}

	var dropLines, issueLines []notify.SLALine
	for _, r := range report.Drops {
		if !r.Level.NeedsAlert() {
			continue
		}
		dropLines = append(dropLines, notify.SLALine{
			Label:  fmt.Sprintf("Bag %s (%s)", r.Drop.BagNumber, nameOr(r.Drop.MemberName, r.Drop.MemberID)),
			Detail: fmt.Sprintf("%s for %dh, %s", r.Drop.Status, r.AgeHours, r.Level),
		})
	}
	for _, r := range report.Issues {
		if r.Urgency != enums.IssueUrgencyOverdue {
			continue
		}
		issueLines = append(issueLines, notify.SLALine{
			Label:  fmt.Sprintf("%s (%s)", r.Issue.Type, nameOr(r.Issue.MemberName, r.Issue.MemberID)),
			Detail: fmt.Sprintf("%s, open %dh", r.Issue.Status, r.AgeHours),
		})
	}

	result := &AlertResult{Drops: len(dropLines), Issues: len(issueLines)}
	logCtx := s.logg.WithFields(ctx, map[string]any{"drops": result.Drops, "issues": result.Issues})
	if result.Drops == 0 && result.Issues == 0 {
		s.logg.Info(logCtx, "sla.nothing_to_report")
		return result, nil
	}
	outcome := s.notifier.NotifyOps(ctx, notify.SLAAlert(dropLines, issueLines))
	result.Sent = outcome.Delivered()
	result.Channel = outcome.Channel
	s.logg.Info(logCtx, "sla.alert_sent")
	return result, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return "unknown member"
}
