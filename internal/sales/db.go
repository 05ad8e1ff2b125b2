package sales

import (
	"context"
	"strings"
	"time"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	hasTickets  = "EXISTS (SELECT 1 FROM tickets AS t WHERE t.sale_id = s.id)"
	hasPackages = "EXISTS (SELECT 1 FROM packages AS p WHERE p.sale_id = s.id)"
)

// SaleRow is one line of the sales history.
type SaleRow struct {
	ID                 string          `bun:"id" json:"id"`
	UserID             string          `bun:"user_id" json:"user_id"`
	CustomerName       string          `bun:"customer_name" json:"customer_name"`
	CustomerNationalID string          `bun:"customer_national_id" json:"customer_national_id"`
	DestinationID      string          `bun:"destination_id" json:"destination_id,omitempty"`
	DestinationName    string          `bun:"destination_name" json:"destination_name,omitempty"`
	ItemCount          int             `bun:"item_count" json:"item_count"`
	Tickets            int             `bun:"tickets" json:"tickets"`
	Packages           int             `bun:"packages" json:"packages"`
	TotalPaid          decimal.Decimal `bun:"total_paid" json:"total_paid"`
	PurchasedAt        time.Time       `bun:"purchased_at" json:"purchased_at"`
}

type Stats struct {
	Sales    int `bun:"sales" json:"sales"`
	Tickets  int `bun:"tickets" json:"tickets"`
	Packages int `bun:"packages" json:"packages"`
	Mixed    int `bun:"mixed" json:"mixed"`
}

// Holding groups a user's tickets or packages by type, state and price.
type Holding struct {
	Type  string          `bun:"type" json:"type"`
	State string          `bun:"state" json:"state"`
	Price decimal.Decimal `bun:"price" json:"price"`
	Count int             `bun:"count" json:"count"`
}

type ticketLine struct {
	Number          int             `bun:"number"`
	Type            string          `bun:"type"`
	Price           decimal.Decimal `bun:"price"`
	DestinationName string          `bun:"destination_name"`
	DepartsAt       time.Time       `bun:"departs_at"`
}

type packageLine struct {
	Type            string          `bun:"type"`
	WeightKg        decimal.Decimal `bun:"weight_kg"`
	Recipient       string          `bun:"recipient"`
	ShippingPrice   decimal.Decimal `bun:"shipping_price"`
	DestinationName string          `bun:"destination_name"`
}

type DB struct {
	Bun bun.IDB
}

// visible scopes a sales query to userID, or to every sale when userID is
// empty.
func (d *DB) visible(userID string) *bun.SelectQuery {
	q := d.Bun.NewSelect().TableExpr("sales AS s")
	if userID != "" {
		q = q.Where("s.user_id = ?", userID)
	}
	return q
}

func (d *DB) filtered(userID string, f Filter) *bun.SelectQuery {
	q := d.visible(userID).
		Join("JOIN users AS u ON u.id = s.user_id").
		Join("LEFT JOIN destinations AS d ON d.id = s.destination_id")

	if text := strings.ToLower(strings.TrimSpace(f.Query)); text != "" {
		like := "%" + text + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(d.name) LIKE ?", like).
				WhereOr("LOWER(u.name) LIKE ?", like).
				WhereOr("LOWER(u.national_id) LIKE ?", like).
				WhereOr("CAST(s.total_paid AS TEXT) LIKE ?", like).
				WhereOr("CAST(s.item_count AS TEXT) LIKE ?", like).
				WhereOr("CAST(s.purchased_at AS TEXT) LIKE ?", like)
		})
	}

	switch f.Kind {
	case KindTickets:
		q = q.Where(hasTickets).Where("NOT " + hasPackages)
	case KindPackages:
		q = q.Where(hasPackages).Where("NOT " + hasTickets)
	case KindMixed:
		q = q.Where(hasTickets).Where(hasPackages)
	}
	return q
}

func (d *DB) CountSales(ctx context.Context, userID string, f Filter) (int, error) {
	return d.filtered(userID, f).Count(ctx)
}

func (d *DB) ListSales(ctx context.Context, userID string, f Filter, limit, offset int) ([]SaleRow, error) {
	var rows []SaleRow
	err := d.filtered(userID, f).
		ColumnExpr("s.id, s.user_id, s.destination_id, s.item_count, s.total_paid, s.purchased_at").
		ColumnExpr("u.name AS customer_name, u.national_id AS customer_national_id").
		ColumnExpr("d.name AS destination_name").
		ColumnExpr("(SELECT COUNT(*) FROM tickets AS t WHERE t.sale_id = s.id) AS tickets").
		ColumnExpr("(SELECT COUNT(*) FROM packages AS p WHERE p.sale_id = s.id) AS packages").
		OrderExpr("s.purchased_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &rows)
	return rows, err
}

// SaleStats aggregates item counts over every sale visible to userID.
func (d *DB) SaleStats(ctx context.Context, userID string) (Stats, error) {
	inner := d.visible(userID).
		ColumnExpr("(SELECT COUNT(*) FROM tickets AS t WHERE t.sale_id = s.id) AS tc").
		ColumnExpr("(SELECT COUNT(*) FROM packages AS p WHERE p.sale_id = s.id) AS pc")

	var stats Stats
	err := d.Bun.NewSelect().
		TableExpr("(?) AS x", inner).
		ColumnExpr("COUNT(*) AS sales").
		ColumnExpr("COALESCE(SUM(x.tc), 0) AS tickets").
		ColumnExpr("COALESCE(SUM(x.pc), 0) AS packages").
		ColumnExpr("COALESCE(SUM(CASE WHEN x.tc > 0 AND x.pc > 0 THEN 1 ELSE 0 END), 0) AS mixed").
		Scan(ctx, &stats)
	return stats, err
}

func (d *DB) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := d.Bun.NewSelect().Model(&sale).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, database.NotFound(err, "sale", id)
	}
	return &sale, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, database.NotFound(err, "user", id)
	}
	return &user, nil
}

func (d *DB) saleTickets(ctx context.Context, saleID string) ([]ticketLine, error) {
	var lines []ticketLine
	err := d.Bun.NewSelect().
		TableExpr("tickets AS t").
		Join("JOIN schedules AS sch ON sch.id = t.schedule_id").
		Join("JOIN destinations AS d ON d.id = t.destination_id").
		ColumnExpr("t.number, t.type, t.price, d.name AS destination_name, sch.departs_at").
		Where("t.sale_id = ?", saleID).
		OrderExpr("sch.departs_at ASC, t.number ASC").
		Scan(ctx, &lines)
	return lines, err
}

func (d *DB) salePackages(ctx context.Context, saleID string) ([]packageLine, error) {
	var lines []packageLine
	err := d.Bun.NewSelect().
		TableExpr("packages AS p").
		Join("JOIN destinations AS d ON d.id = p.destination_id").
		ColumnExpr("p.type, p.weight_kg, p.recipient, p.shipping_price, d.name AS destination_name").
		Where("p.sale_id = ?", saleID).
		OrderExpr("p.created_at ASC").
		Scan(ctx, &lines)
	return lines, err
}

// TicketHoldings covers sold tickets and those still reserved in the
// user's carts.
func (d *DB) TicketHoldings(ctx context.Context, userID string) ([]Holding, error) {
	var out []Holding
	err := d.Bun.NewSelect().
		TableExpr("tickets AS t").
		ColumnExpr("t.type, t.state, t.price, COUNT(*) AS count").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("t.user_id = ?", userID).
				WhereOr("t.cart_id IN (SELECT c.id FROM carts AS c WHERE c.user_id = ?)", userID)
		}).
		Where("t.state IN (?)", bun.In([]models.TicketState{models.TicketInCart, models.TicketSold})).
		GroupExpr("t.type, t.state, t.price").
		OrderExpr("t.state ASC, t.type ASC").
		Scan(ctx, &out)
	return out, err
}

func (d *DB) PackageHoldings(ctx context.Context, userID string) ([]Holding, error) {
	var out []Holding
	err := d.Bun.NewSelect().
		TableExpr("packages AS p").
		ColumnExpr("p.type, p.state, p.shipping_price AS price, COUNT(*) AS count").
		Where("p.sender_id = ?", userID).
		GroupExpr("p.type, p.state, p.shipping_price").
		OrderExpr("p.state ASC, p.type ASC").
		Scan(ctx, &out)
	return out, err
}
