package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/models"

	"github.com/uptrace/bun"
)

// DB wraps either the pool or a transaction.
type DB struct {
	Bun bun.IDB
}

func (d *DB) WithTx(tx bun.Tx) *DB {
	return &DB{Bun: tx}
}

// ---------------- DESTINATIONS ----------------

func (d *DB) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	var dest models.Destination
	err := d.Bun.NewSelect().Model(&dest).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "destination", id)
	}
	return &dest, nil
}

func (d *DB) ListDestinations(ctx context.Context) ([]models.Destination, error) {
	var dests []models.Destination
	err := d.Bun.NewSelect().Model(&dests).OrderExpr("name ASC").Scan(ctx)
	return dests, err
}

func (d *DB) CreateDestination(ctx context.Context, dest *models.Destination) error {
	_, err := d.Bun.NewInsert().Model(dest).Exec(ctx)
	return err
}

func (d *DB) UpdateDestination(ctx context.Context, dest *models.Destination) error {
	_, err := d.Bun.NewUpdate().
		Model(dest).
		Column("name", "description", "transport", "general_price", "vip_price",
			"base_shipping_price", "per_kilo_extra", "base_weight_kg").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) DeleteDestination(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().Model((*models.Destination)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, "destination", id)
}

// ---------------- SURCHARGES ----------------

// GetSurcharge returns nil without error when the destination has none.
func (d *DB) GetSurcharge(ctx context.Context, destinationID string) (*models.ShippingSurcharge, error) {
	var sur models.ShippingSurcharge
	err := d.Bun.NewSelect().Model(&sur).Where("destination_id = ?", destinationID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sur, nil
}

func (d *DB) UpsertSurcharge(ctx context.Context, sur *models.ShippingSurcharge) error {
	_, err := d.Bun.NewInsert().
		Model(sur).
		On("CONFLICT (destination_id) DO UPDATE").
		Set("extra_fee = EXCLUDED.extra_fee").
		Set("description = EXCLUDED.description").
		Exec(ctx)
	return err
}

func (d *DB) DeleteSurcharge(ctx context.Context, destinationID string) error {
	res, err := d.Bun.NewDelete().Model((*models.ShippingSurcharge)(nil)).
		Where("destination_id = ?", destinationID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, "surcharge for destination", destinationID)
}

// ---------------- SCHEDULES ----------------

func (d *DB) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	var sch models.Schedule
	err := d.Bun.NewSelect().Model(&sch).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "schedule", id)
	}
	return &sch, nil
}

func (d *DB) ListSchedules(ctx context.Context, destinationID string) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := d.Bun.NewSelect().Model(&schedules).
		Where("destination_id = ?", destinationID).
		OrderExpr("departs_at ASC").
		Scan(ctx)
	return schedules, err
}

func (d *DB) CreateSchedule(ctx context.Context, sch *models.Schedule) error {
	_, err := d.Bun.NewInsert().Model(sch).Exec(ctx)
	return err
}

func (d *DB) UpdateSchedule(ctx context.Context, sch *models.Schedule) error {
	_, err := d.Bun.NewUpdate().Model(sch).Column("departs_at").WherePK().Exec(ctx)
	return err
}

// DeleteSchedule removes the schedule together with the ticket carts that
// point at it. Tickets go with the schedule through the foreign key.
func (d *DB) DeleteSchedule(ctx context.Context, id string) error {
	if _, err := d.Bun.NewDelete().Model((*models.Cart)(nil)).
		Where("kind = ?", models.CartTickets).
		Where("schedule_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete carts of schedule: %w", err)
	}
	res, err := d.Bun.NewDelete().Model((*models.Schedule)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, "schedule", id)
}

// ---------------- TICKETS ----------------

func (d *DB) CountTickets(ctx context.Context, scheduleID string) (int, error) {
	return d.Bun.NewSelect().Model((*models.Ticket)(nil)).Where("schedule_id = ?", scheduleID).Count(ctx)
}

func (d *DB) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&tickets).Exec(ctx)
	return err
}

type StateCount struct {
	State models.TicketState `bun:"state"`
	Type  models.TicketType  `bun:"type"`
	N     int                `bun:"n"`
}

func (d *DB) TicketStats(ctx context.Context, scheduleID string) ([]StateCount, error) {
	var rows []StateCount
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("state", "type").
		ColumnExpr("COUNT(*) AS n").
		Where("schedule_id = ?", scheduleID).
		Group("state", "type").
		Scan(ctx, &rows)
	return rows, err
}

func expectRow(res interface{ RowsAffected() (int64, error) }, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, what, id)
	}
	return nil
}
