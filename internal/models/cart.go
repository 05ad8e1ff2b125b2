package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CartKind string

const (
	CartTickets  CartKind = "ticket"
	CartPackages CartKind = "package"
)

// Cart holds the reserved-but-unpaid items of one user for one destination
// (and, for ticket carts, one schedule). Package carts use an empty
// ScheduleID so that (user, kind, destination, schedule) stays unique.
type Cart struct {
	bun.BaseModel `bun:"table:carts,alias:c"`

	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id,notnull" json:"user_id"`
	Kind          CartKind        `bun:"kind,notnull" json:"kind"`
	DestinationID string          `bun:"destination_id,notnull" json:"destination_id"`
	ScheduleID    string          `bun:"schedule_id,notnull" json:"schedule_id,omitempty"`
	Quantity      int             `bun:"quantity,notnull" json:"quantity"`
	Total         decimal.Decimal `bun:"total,type:decimal(10,2),notnull" json:"total"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`
}

type Sale struct {
	bun.BaseModel `bun:"table:sales,alias:s"`

	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id,notnull" json:"user_id"`
	DestinationID string          `bun:"destination_id,nullzero" json:"destination_id,omitempty"`
	ItemCount     int             `bun:"item_count,notnull" json:"item_count"`
	TotalPaid     decimal.Decimal `bun:"total_paid,type:decimal(10,2),notnull" json:"total_paid"`
	PurchasedAt   time.Time       `bun:"purchased_at,notnull" json:"purchased_at"`
}
