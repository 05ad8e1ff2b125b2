// Package dbtest provides an in-memory SQLite database with the full schema
// for package tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// New returns a fresh database. Each call gets its own named in-memory file
// so parallel tests never share state.
func New(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.CreateSchema(ctx, db))
	return db
}

func User(t *testing.T, db bun.IDB, role models.Role) *models.User {
	t.Helper()
	id := uuid.NewString()
	user := &models.User{
		ID:           id,
		NationalID:   id[:13],
		Name:         "user " + id[:8],
		Email:        id[:8] + "@example.com",
		Phone:        "555-0100",
		Role:         role,
		PasswordHash: "x",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

// Destination inserts a destination priced 100 general / 250 vip with the
// default shipping rate.
func Destination(t *testing.T, db bun.IDB, name string) *models.Destination {
	t.Helper()
	dest := &models.Destination{
		ID:                uuid.NewString(),
		Name:              name,
		Transport:         models.TransportAir,
		GeneralPrice:      decimal.NewFromInt(100),
		VIPPrice:          decimal.NewFromInt(250),
		BaseShippingPrice: decimal.NewFromInt(10),
		PerKiloExtra:      decimal.NewFromInt(2),
		BaseWeightKg:      decimal.NewFromInt(10),
		CreatedAt:         time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(dest).Exec(context.Background())
	require.NoError(t, err)
	return dest
}

// Schedule inserts a bare schedule without a ticket pool.
func Schedule(t *testing.T, db bun.IDB, destinationID string, departsAt time.Time) *models.Schedule {
	t.Helper()
	sch := &models.Schedule{
		ID:            uuid.NewString(),
		DestinationID: destinationID,
		DepartsAt:     departsAt.UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	_, err := db.NewInsert().Model(sch).Exec(context.Background())
	require.NoError(t, err)
	return sch
}

// Tickets inserts free tickets numbered from 1, typed in the given order.
func Tickets(t *testing.T, db bun.IDB, dest *models.Destination, scheduleID string, types ...models.TicketType) []models.Ticket {
	t.Helper()
	tickets := make([]models.Ticket, len(types))
	for i, typ := range types {
		price := dest.GeneralPrice
		if typ == models.TicketVIP {
			price = dest.VIPPrice
		}
		tickets[i] = models.Ticket{
			ID:            uuid.NewString(),
			Number:        i + 1,
			Type:          typ,
			Price:         price,
			DestinationID: dest.ID,
			ScheduleID:    scheduleID,
			State:         models.TicketFree,
		}
	}
	if len(tickets) > 0 {
		_, err := db.NewInsert().Model(&tickets).Exec(context.Background())
		require.NoError(t, err)
	}
	return tickets
}

// CountTickets counts the tickets of a schedule in the given state.
func CountTickets(t *testing.T, db bun.IDB, scheduleID string, state models.TicketState) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.Ticket)(nil)).
		Where("schedule_id = ?", scheduleID).
		Where("state = ?", state).
		Count(context.Background())
	require.NoError(t, err)
	return n
}
