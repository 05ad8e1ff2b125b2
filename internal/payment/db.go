package payment

import (
	"context"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) WithTx(tx bun.Tx) *DB {
	return &DB{Bun: tx}
}

func (d *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

// GetPayment loads one payment, locking the row on PostgreSQL when called
// inside a transaction.
func (d *DB) GetPayment(ctx context.Context, id string, forUpdate bool) (*models.Payment, error) {
	var p models.Payment
	q := d.Bun.NewSelect().Model(&p).Where("id = ?", id).Limit(1)
	if forUpdate && database.IsPostgres(d.Bun) {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, database.NotFound(err, "payment", id)
	}
	return &p, nil
}

func (d *DB) UpdateVerification(ctx context.Context, p *models.Payment) error {
	_, err := d.Bun.NewUpdate().Model(p).Column("state", "verified_at", "sale_id").WherePK().Exec(ctx)
	return err
}

func (d *DB) ListByState(ctx context.Context, state models.PaymentState) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().Model(&payments).
		Where("state = ?", state).
		OrderExpr("created_at ASC").
		Scan(ctx)
	return payments, err
}

func (d *DB) ListForUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().Model(&payments).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return payments, err
}
