package cart

import (
	"context"
	"fmt"
	"time"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) WithTx(tx bun.Tx) *DB {
	return &DB{Bun: tx}
}

// ---------------- CARTS ----------------

// GetOrCreateCart returns the single cart for the owner key, inserting it
// first when missing. Concurrent callers converge on the same row.
func (d *DB) GetOrCreateCart(ctx context.Context, userID string, kind models.CartKind, destinationID, scheduleID string) (*models.Cart, error) {
	fresh := &models.Cart{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          kind,
		DestinationID: destinationID,
		ScheduleID:    scheduleID,
		Total:         decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := d.Bun.NewInsert().Model(fresh).
		On("CONFLICT (user_id, kind, destination_id, schedule_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	var c models.Cart
	err = d.Bun.NewSelect().Model(&c).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Where("destination_id = ?", destinationID).
		Where("schedule_id = ?", scheduleID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &c, nil
}

func (d *DB) GetCart(ctx context.Context, id string) (*models.Cart, error) {
	var c models.Cart
	err := d.Bun.NewSelect().Model(&c).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "cart", id)
	}
	return &c, nil
}

// ListCarts returns the user's carts of one kind in creation order. With
// forUpdate inside a PostgreSQL transaction the rows stay locked until commit.
func (d *DB) ListCarts(ctx context.Context, userID string, kind models.CartKind, forUpdate bool) ([]models.Cart, error) {
	var carts []models.Cart
	q := d.Bun.NewSelect().Model(&carts).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		OrderExpr("created_at ASC, id ASC")
	if forUpdate && database.IsPostgres(d.Bun) {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	return carts, nil
}

func (d *DB) SaveTotals(ctx context.Context, c *models.Cart) error {
	_, err := d.Bun.NewUpdate().Model(c).Column("quantity", "total").WherePK().Exec(ctx)
	return err
}

func (d *DB) DeleteCarts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Bun.NewDelete().Model((*models.Cart)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	return err
}

// ---------------- TICKETS ----------------

func (d *DB) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	var sch models.Schedule
	err := d.Bun.NewSelect().Model(&sch).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "schedule", id)
	}
	return &sch, nil
}

// SelectFreeTickets picks up to limit free tickets in pool order. On
// PostgreSQL the rows are locked and rows held by other reservations are
// skipped.
func (d *DB) SelectFreeTickets(ctx context.Context, destinationID, scheduleID string, typ models.TicketType, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := d.Bun.NewSelect().Model(&tickets).
		Where("destination_id = ?", destinationID).
		Where("schedule_id = ?", scheduleID).
		Where("state = ?", models.TicketFree)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	q = q.OrderExpr("number ASC").Limit(limit)
	if database.IsPostgres(d.Bun) {
		q = q.For("UPDATE SKIP LOCKED")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select free tickets: %w", err)
	}
	return tickets, nil
}

// AttachTickets moves free tickets into the cart. The write is conditional
// on the free state so the caller can detect a lost race from the count.
func (d *DB) AttachTickets(ctx context.Context, cartID string, ids []string) (int64, error) {
	res, err := d.Bun.NewUpdate().Model((*models.Ticket)(nil)).
		Set("state = ?", models.TicketInCart).
		Set("cart_id = ?", cartID).
		Where("id IN (?)", bun.In(ids)).
		Where("state = ?", models.TicketFree).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("attach tickets: %w", err)
	}
	return res.RowsAffected()
}

func (d *DB) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := d.Bun.NewSelect().Model(&t).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "ticket", id)
	}
	return &t, nil
}

// ---------------- PACKAGES ----------------

func (d *DB) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	var dest models.Destination
	err := d.Bun.NewSelect().Model(&dest).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "destination", id)
	}
	return &dest, nil
}

func (d *DB) GetSurcharge(ctx context.Context, destinationID string) (*models.ShippingSurcharge, error) {
	var surs []models.ShippingSurcharge
	err := d.Bun.NewSelect().Model(&surs).Where("destination_id = ?", destinationID).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(surs) == 0 {
		return nil, nil
	}
	return &surs[0], nil
}

func (d *DB) InsertPackage(ctx context.Context, p *models.Package) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	var p models.Package
	err := d.Bun.NewSelect().Model(&p).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err, "package", id)
	}
	return &p, nil
}

func (d *DB) UpdatePackage(ctx context.Context, p *models.Package) error {
	_, err := d.Bun.NewUpdate().Model(p).
		Column("type", "weight_kg", "description", "recipient", "shipping_price").
		WherePK().
		Exec(ctx)
	return err
}
