package cron

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

const UnreturnedBagsJobName = "unreturned-bags"

type UnreturnedBagsJobParams struct {
	Bags    bags.Service
	Members members.Repository
	Logger  *logger.Logger
}

// UnreturnedBagsJob marks bags still held by cancelled members as Unreturned.
type UnreturnedBagsJob struct {
	bags    bags.Service
	members members.Repository
	logg    *logger.Logger
}

func NewUnreturnedBagsJob(params UnreturnedBagsJobParams) (*UnreturnedBagsJob, error) {
	if params.Bags == nil {
		return nil, fmt.Errorf("bags service required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &UnreturnedBagsJob{bags: params.Bags, members: params.Members, logg: params.Logger}, nil
}

func (j *UnreturnedBagsJob) Name() string { return UnreturnedBagsJobName }

func (j *UnreturnedBagsJob) Run(ctx context.Context) (Summary, error) {
	held, err := j.bags.ListAll(ctx, bags.ListFilter{
		Statuses: []enums.BagStatus{enums.BagStatusIssued, enums.BagStatusInUse},
	})
	if err != nil {
		return nil, err
	}

	statuses := map[string]enums.MemberStatus{}
	var marked int
	var errs error
	for _, bag := range held {
		if bag.MemberID == "" {
			continue
		}
		status, ok := statuses[bag.MemberID]
		if !ok {
			member, err := j.members.Get(ctx, bag.MemberID)
			if err != nil && !errors.Is(err, airtable.ErrNotFound) {
				errs = multierr.Append(errs, fmt.Errorf("bag %s: load member: %w", bag.BagNumber, err))
				continue
			}
			if member != nil {
				status = member.Status
			}
			statuses[bag.MemberID] = status
		}
		if status != enums.MemberStatusCancelled {
			continue
		}
		if _, err := j.bags.Apply(ctx, bag.BagNumber, bags.ActionInput{
			Action: string(enums.BagActionMarkUnreturned),
			Notes:  "Member cancelled with bag outstanding",
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bag %s: %w", bag.BagNumber, err))
			continue
		}
		marked++
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"bag_number": bag.BagNumber,
			"member_id":  bag.MemberID,
		}), "cron.bag_marked_unreturned")
	}
	return Summary{
		"held":   len(held),
		"marked": marked,
		"failed": len(multierr.Errors(errs)),
	}, errs
}
