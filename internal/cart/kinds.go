package cart

import (
	"context"
	"fmt"

	"ms-travel-sales/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Item is one sellable line of a cart, whatever its kind.
type Item struct {
	ID          string          `json:"id"`
	CartID      string          `json:"cart_id"`
	Kind        models.CartKind `json:"kind"`
	Description string          `json:"description"`
	Detail      string          `json:"detail"`
	Price       decimal.Decimal `json:"price"`
}

// ItemKind supplies the storage and state-transition rules of one kind of
// sellable item. Carts, settlement and release are written against it.
type ItemKind interface {
	Kind() models.CartKind
	// Items returns the in-cart items attached to the given carts.
	Items(ctx context.Context, db bun.IDB, cartIDs ...string) ([]Item, error)
	// Sell moves the given in-cart items to sold under saleID. It returns
	// how many rows changed.
	Sell(ctx context.Context, db bun.IDB, userID, saleID string, itemIDs []string) (int64, error)
	// Release detaches the given items from their cart: tickets return to
	// the free pool, packages are deleted.
	Release(ctx context.Context, db bun.IDB, itemIDs []string) (int64, error)
}

// Kinds lists every item kind in settlement order.
var Kinds = []ItemKind{TicketKind{}, PackageKind{}}

func KindFor(kind models.CartKind) (ItemKind, error) {
	for _, k := range Kinds {
		if k.Kind() == kind {
			return k, nil
		}
	}
	return nil, fmt.Errorf("unknown cart kind %q", kind)
}

// Sum adds up item prices.
func Sum(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// ---------------- TICKETS ----------------

type TicketKind struct{}

func (TicketKind) Kind() models.CartKind { return models.CartTickets }

func (TicketKind) Items(ctx context.Context, db bun.IDB, cartIDs ...string) ([]Item, error) {
	if len(cartIDs) == 0 {
		return nil, nil
	}
	var tickets []models.Ticket
	err := db.NewSelect().Model(&tickets).
		Where("cart_id IN (?)", bun.In(cartIDs)).
		Where("state = ?", models.TicketInCart).
		OrderExpr("schedule_id ASC, number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart tickets: %w", err)
	}

	items := make([]Item, len(tickets))
	for i, t := range tickets {
		items[i] = Item{
			ID:          t.ID,
			CartID:      t.CartID,
			Kind:        models.CartTickets,
			Description: fmt.Sprintf("Ticket #%d", t.Number),
			Detail:      string(t.Type),
			Price:       t.Price,
		}
	}
	return items, nil
}

func (TicketKind) Sell(ctx context.Context, db bun.IDB, userID, saleID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res, err := db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("state = ?", models.TicketSold).
		Set("user_id = ?", userID).
		Set("sale_id = ?", saleID).
		Set("cart_id = NULL").
		Where("id IN (?)", bun.In(itemIDs)).
		Where("state = ?", models.TicketInCart).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sell tickets: %w", err)
	}
	return res.RowsAffected()
}

func (TicketKind) Release(ctx context.Context, db bun.IDB, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res, err := db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("state = ?", models.TicketFree).
		Set("user_id = NULL").
		Set("cart_id = NULL").
		Where("id IN (?)", bun.In(itemIDs)).
		Where("state = ?", models.TicketInCart).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("release tickets: %w", err)
	}
	return res.RowsAffected()
}

// ---------------- PACKAGES ----------------

type PackageKind struct{}

func (PackageKind) Kind() models.CartKind { return models.CartPackages }

func (PackageKind) Items(ctx context.Context, db bun.IDB, cartIDs ...string) ([]Item, error) {
	if len(cartIDs) == 0 {
		return nil, nil
	}
	var pkgs []models.Package
	err := db.NewSelect().Model(&pkgs).
		Where("cart_id IN (?)", bun.In(cartIDs)).
		Where("state = ?", models.PackageInCart).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart packages: %w", err)
	}

	items := make([]Item, len(pkgs))
	for i, p := range pkgs {
		items[i] = Item{
			ID:          p.ID,
			CartID:      p.CartID,
			Kind:        models.CartPackages,
			Description: p.Description,
			Detail:      fmt.Sprintf("%s, %s kg", p.Type, p.WeightKg.StringFixed(2)),
			Price:       p.ShippingPrice,
		}
	}
	return items, nil
}

func (PackageKind) Sell(ctx context.Context, db bun.IDB, userID, saleID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res, err := db.NewUpdate().Model((*models.Package)(nil)).
		Set("state = ?", models.PackageSold).
		Set("sale_id = ?", saleID).
		Set("cart_id = NULL").
		Where("id IN (?)", bun.In(itemIDs)).
		Where("sender_id = ?", userID).
		Where("state = ?", models.PackageInCart).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sell packages: %w", err)
	}
	return res.RowsAffected()
}

func (PackageKind) Release(ctx context.Context, db bun.IDB, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res, err := db.NewDelete().Model((*models.Package)(nil)).
		Where("id IN (?)", bun.In(itemIDs)).
		Where("state = ?", models.PackageInCart).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("discard packages: %w", err)
	}
	return res.RowsAffected()
}
