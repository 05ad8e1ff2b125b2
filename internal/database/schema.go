package database

import (
	"context"
	"fmt"

	"ms-travel-sales/internal/models"

	"github.com/uptrace/bun"
)

type table struct {
	model       any
	foreignKeys []string
}

// tables are listed in dependency order.
var tables = []table{
	{model: (*models.User)(nil)},
	{model: (*models.Destination)(nil)},
	{
		model: (*models.ShippingSurcharge)(nil),
		foreignKeys: []string{
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*models.Schedule)(nil),
		foreignKeys: []string{
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*models.Cart)(nil),
		foreignKeys: []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model: (*models.Sale)(nil),
		foreignKeys: []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE SET NULL`,
		},
	},
	{
		model: (*models.Ticket)(nil),
		foreignKeys: []string{
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE CASCADE`,
			`("schedule_id") REFERENCES "schedules" ("id") ON DELETE CASCADE`,
			`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`,
			`("cart_id") REFERENCES "carts" ("id") ON DELETE SET NULL`,
			`("sale_id") REFERENCES "sales" ("id") ON DELETE SET NULL`,
		},
	},
	{
		model: (*models.Package)(nil),
		foreignKeys: []string{
			`("destination_id") REFERENCES "destinations" ("id") ON DELETE CASCADE`,
			`("sender_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("cart_id") REFERENCES "carts" ("id") ON DELETE SET NULL`,
			`("sale_id") REFERENCES "sales" ("id") ON DELETE SET NULL`,
		},
	},
	{
		model: (*models.Payment)(nil),
		foreignKeys: []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("sale_id") REFERENCES "sales" ("id") ON DELETE SET NULL`,
		},
	},
}

type index struct {
	model   any
	name    string
	columns []string
	unique  bool
}

var indexes = []index{
	{model: (*models.Ticket)(nil), name: "tickets_schedule_number_idx", columns: []string{"schedule_id", "number"}, unique: true},
	{model: (*models.Ticket)(nil), name: "tickets_schedule_state_idx", columns: []string{"schedule_id", "state", "type"}},
	{model: (*models.Ticket)(nil), name: "tickets_cart_idx", columns: []string{"cart_id"}},
	{model: (*models.Package)(nil), name: "packages_cart_idx", columns: []string{"cart_id"}},
	{model: (*models.Cart)(nil), name: "carts_owner_key_idx", columns: []string{"user_id", "kind", "destination_id", "schedule_id"}, unique: true},
	{model: (*models.Payment)(nil), name: "payments_state_idx", columns: []string{"state"}},
	{model: (*models.Sale)(nil), name: "sales_user_idx", columns: []string{"user_id"}},
}

// CreateSchema builds the schema from the bun models. It backs SQLite
// deployments and tests; PostgreSQL uses the versioned migrations.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", t.model, err)
		}
	}

	for _, idx := range indexes {
		q := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema removes every table, children first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i].model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i].model, err)
		}
	}
	return nil
}
