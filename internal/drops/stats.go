package drops

import (
	"context"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Stats summarises drops that have not been collected yet.
type Stats struct {
	ByStatus       map[enums.DropStatus]int `json:"by_status"`
	Open           int                      `json:"open"`
	InFlight       int                      `json:"in_flight"`
	AwaitingPickup int                      `json:"awaiting_pickup"`
	OverduePickup  int                      `json:"overdue_pickup"`
	DroppedToday   int                      `json:"dropped_today"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

var openStatuses = []enums.DropStatus{
	enums.DropStatusDropped,
	enums.DropStatusInTransit,
	enums.DropStatusAtLaundry,
	enums.DropStatusReady,
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	list, err := s.repo.List(ctx, ListFilter{Statuses: openStatuses})
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	now := s.now()
	today := now.In(s.loc).Format("2006-01-02")
	stats := &Stats{ByStatus: map[enums.DropStatus]int{}, GeneratedAt: now.UTC()}
	for _, st := range openStatuses {
		stats.ByStatus[st] = 0
	}
	for _, d := range list {
		stats.Open++
		stats.ByStatus[d.Status]++
		if d.Status.IsInFlight() {
			stats.InFlight++
		}
		if d.Status == enums.DropStatusReady {
			stats.AwaitingPickup++
			if d.PickupDeadline != nil && d.PickupDeadline.Before(now) {
				stats.OverduePickup++
			}
		}
		if d.DroppedAt().In(s.loc).Format("2006-01-02") == today {
			stats.DroppedToday++
		}
	}
	return stats, nil
}
