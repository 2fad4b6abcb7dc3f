package cron

import (
	"context"
	"fmt"

	"github.com/freshkit/freshkit-backend/internal/sla"
)

const SLACheckJobName = "sla-check"

// SLACheckJob emails ops when drops or tickets are past their SLA.
type SLACheckJob struct {
	sla sla.Service
}

func NewSLACheckJob(svc sla.Service) (*SLACheckJob, error) {
	if svc == nil {
		return nil, fmt.Errorf("sla service required")
	}
	return &SLACheckJob{sla: svc}, nil
}

func (j *SLACheckJob) Name() string { return SLACheckJobName }

func (j *SLACheckJob) Run(ctx context.Context) (Summary, error) {
	result, err := j.sla.Alert(ctx)
	if err != nil {
		return nil, err
	}
	return Summary{
		"drops":   result.Drops,
		"issues":  result.Issues,
		"sent":    result.Sent,
		"channel": string(result.Channel),
	}, nil
}
