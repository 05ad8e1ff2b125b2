// Package settlement converts a user's carts into a single Sale.
package settlement

import (
	"context"
	"fmt"
	"time"

	"ms-travel-sales/internal/cart"
	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/lock"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/metrics"
	"ms-travel-sales/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Result describes a committed settlement.
type Result struct {
	Sale     models.Sale
	Tickets  int
	Packages int
	Items    []cart.Item
}

type Engine struct {
	bun    *bun.DB
	Locker lock.Locker
	Events *kafka.Emitter
	Logger *logger.Logger
	now    func() time.Time
}

func NewEngine(db *bun.DB, locker lock.Locker, events *kafka.Emitter, log *logger.Logger) *Engine {
	return &Engine{bun: db, Locker: locker, Events: events, Logger: log, now: time.Now}
}

// Settle runs the whole settlement for userID under the user's cart lock in
// one transaction.
func (e *Engine) Settle(ctx context.Context, userID string) (*Result, error) {
	var res *Result
	err := e.Locker.WithUser(ctx, userID, func(ctx context.Context) error {
		return e.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			res, err = e.SettleTx(ctx, tx, userID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	e.Committed(ctx, res)
	return res, nil
}

// SettleTx performs settlement inside a caller-owned transaction. The caller
// must hold the user's cart lock and call Committed after commit.
func (e *Engine) SettleTx(ctx context.Context, tx bun.IDB, userID string) (*Result, error) {
	db := &cart.DB{Bun: tx}

	type batch struct {
		kind  cart.ItemKind
		items []cart.Item
	}
	var batches []batch
	var cartIDs []string
	destinationID := ""

	for _, kind := range cart.Kinds {
		carts, err := db.ListCarts(ctx, userID, kind.Kind(), true)
		if err != nil {
			return nil, err
		}
		if len(carts) == 0 {
			continue
		}
		if destinationID == "" {
			destinationID = carts[0].DestinationID
		}

		ids := make([]string, len(carts))
		for i, c := range carts {
			ids[i] = c.ID
		}
		cartIDs = append(cartIDs, ids...)

		items, err := kind.Items(ctx, tx, ids...)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch{kind: kind, items: items})
	}

	res := &Result{}
	total := decimal.Zero
	for _, b := range batches {
		res.Items = append(res.Items, b.items...)
		total = total.Add(cart.Sum(b.items))
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("%w: user %s has no reserved items", models.ErrEmptyPurchase, userID)
	}

	res.Sale = models.Sale{
		ID:            uuid.NewString(),
		UserID:        userID,
		DestinationID: destinationID,
		ItemCount:     len(res.Items),
		TotalPaid:     total,
		PurchasedAt:   e.now().UTC(),
	}
	if _, err := tx.NewInsert().Model(&res.Sale).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	for _, b := range batches {
		itemIDs := make([]string, len(b.items))
		for i, it := range b.items {
			itemIDs[i] = it.ID
		}
		n, err := b.kind.Sell(ctx, tx, userID, res.Sale.ID, itemIDs)
		if err != nil {
			return nil, err
		}
		if n != int64(len(itemIDs)) {
			return nil, fmt.Errorf("sold %d of %d %s items", n, len(itemIDs), b.kind.Kind())
		}
		switch b.kind.Kind() {
		case models.CartTickets:
			res.Tickets = len(itemIDs)
		case models.CartPackages:
			res.Packages = len(itemIDs)
		}
	}

	if err := db.DeleteCarts(ctx, cartIDs...); err != nil {
		return nil, fmt.Errorf("delete settled carts: %w", err)
	}
	return res, nil
}

// Committed records metrics, logs and events for a settlement whose
// transaction has committed.
func (e *Engine) Committed(ctx context.Context, res *Result) {
	if res == nil {
		return
	}
	metrics.ObserveSale(res.Sale.TotalPaid)
	e.Logger.LogSale("SETTLE", res.Sale.ID, fmt.Sprintf("user %s bought %d tickets and %d packages for %s",
		res.Sale.UserID, res.Tickets, res.Packages, res.Sale.TotalPaid.StringFixed(2)))
	e.Events.SaleCompleted(ctx, kafka.SaleCompleted{
		SaleID:        res.Sale.ID,
		UserID:        res.Sale.UserID,
		DestinationID: res.Sale.DestinationID,
		Tickets:       res.Tickets,
		Packages:      res.Packages,
		Total:         res.Sale.TotalPaid,
	})
}
