package inventory

import (
	"context"
	"fmt"
	"time"

	"ms-travel-sales/internal/models"

	"github.com/google/uuid"
)

type PoolResult struct {
	DestinationID string
	ScheduleID    string
	DepartsAt     time.Time
	Created       int
	VIP           int
}

// GeneratePool creates the fixed-size ticket pool of a schedule. It does
// nothing when the schedule already has tickets, so it is safe to call on
// every save.
func (s *Service) GeneratePool(ctx context.Context, db *DB, dest *models.Destination, sch *models.Schedule) (PoolResult, error) {
	res := PoolResult{DestinationID: dest.ID, ScheduleID: sch.ID, DepartsAt: sch.DepartsAt}

	existing, err := db.CountTickets(ctx, sch.ID)
	if err != nil {
		return res, fmt.Errorf("count tickets: %w", err)
	}
	if existing > 0 {
		return res, nil
	}

	tickets := make([]models.Ticket, models.PoolSize)
	for i := range tickets {
		typ := s.Picker.Pick()
		price := dest.GeneralPrice
		if typ == models.TicketVIP {
			price = dest.VIPPrice
			res.VIP++
		}
		tickets[i] = models.Ticket{
			ID:            uuid.NewString(),
			Number:        i + 1,
			Type:          typ,
			Price:         price,
			DestinationID: dest.ID,
			ScheduleID:    sch.ID,
			State:         models.TicketFree,
		}
	}

	if err := db.InsertTickets(ctx, tickets); err != nil {
		return res, fmt.Errorf("insert ticket pool: %w", err)
	}
	res.Created = len(tickets)

	s.Logger.Info("INVENTORY", fmt.Sprintf("%d tickets created for %s - %s",
		res.Created, dest.Name, sch.DepartsAt.Format("2006-01-02 15:04")))
	return res, nil
}
