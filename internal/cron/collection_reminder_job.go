package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

const (
	CollectionReminderJobName = "collection-reminders"

	defaultReminderAfter = 48 * time.Hour
)

type CollectionReminderJobParams struct {
	Drops  drops.Service
	Logger *logger.Logger
	After  time.Duration
}

// CollectionReminderJob nudges members whose bag has been Ready for longer
// than After. Every run re-sends to every matching drop.
type CollectionReminderJob struct {
	drops drops.Service
	logg  *logger.Logger
	after time.Duration
	now   func() time.Time
}

func NewCollectionReminderJob(params CollectionReminderJobParams) (*CollectionReminderJob, error) {
	if params.Drops == nil {
		return nil, fmt.Errorf("drops service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReminderAfter
	}
	return &CollectionReminderJob{
		drops: params.Drops,
		logg:  params.Logger,
		after: after,
		now:   time.Now,
	}, nil
}

func (j *CollectionReminderJob) Name() string { return CollectionReminderJobName }

func (j *CollectionReminderJob) Run(ctx context.Context) (Summary, error) {
	ready, err := j.drops.ListAll(ctx, drops.ListFilter{Statuses: []enums.DropStatus{enums.DropStatusReady}})
	if err != nil {
		return nil, err
	}
	cutoff := j.now().Add(-j.after)
	var due, reminded, undelivered int
	for _, drop := range ready {
		readySince := drop.CreatedAt
		if drop.ReadyAt != nil {
			readySince = *drop.ReadyAt
		}
		if readySince.After(cutoff) {
			continue
		}
		due++
		outcome := j.drops.RemindCollection(ctx, drop)
		if outcome.Delivered() {
			reminded++
			continue
		}
		undelivered++
		j.logg.Warn(j.logg.WithField(ctx, "drop_id", drop.ID), "cron.reminder_not_delivered")
	}
	return Summary{
		"ready":       len(ready),
		"due":         due,
		"reminded":    reminded,
		"undelivered": undelivered,
	}, nil
}
