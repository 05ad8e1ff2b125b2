package database_test

import (
	"context"
	"testing"
	"time"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/database/dbtest"
	"ms-travel-sales/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.CreateSchema(context.Background(), db))
	assert.False(t, database.IsPostgres(db))
}

func TestDeletingDestinationCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	dest := dbtest.Destination(t, db, "Havana")
	sch := dbtest.Schedule(t, db, dest.ID, time.Now().Add(24*time.Hour))
	dbtest.Tickets(t, db, dest, sch.ID, models.TicketGeneral, models.TicketVIP)

	_, err := db.NewDelete().Model((*models.Destination)(nil)).Where("id = ?", dest.ID).Exec(ctx)
	require.NoError(t, err)

	n, err := db.NewSelect().Model((*models.Ticket)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.NewSelect().Model((*models.Schedule)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCartOwnerKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	user := dbtest.User(t, db, models.RoleClient)
	dest := dbtest.Destination(t, db, "Lima")

	newCart := func() *models.Cart {
		return &models.Cart{
			ID:            uuid.NewString(),
			UserID:        user.ID,
			Kind:          models.CartPackages,
			DestinationID: dest.ID,
			Total:         decimal.Zero,
			CreatedAt:     time.Now().UTC(),
		}
	}

	_, err := db.NewInsert().Model(newCart()).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(newCart()).Exec(ctx)
	assert.Error(t, err)
}

func TestTicketNumberUniquePerSchedule(t *testing.T) {
	db := dbtest.New(t)
	dest := dbtest.Destination(t, db, "Quito")
	sch := dbtest.Schedule(t, db, dest.ID, time.Now())
	dbtest.Tickets(t, db, dest, sch.ID, models.TicketGeneral)

	dup := &models.Ticket{
		ID:            uuid.NewString(),
		Number:        1,
		Type:          models.TicketGeneral,
		Price:         dest.GeneralPrice,
		DestinationID: dest.ID,
		ScheduleID:    sch.ID,
		State:         models.TicketFree,
	}
	_, err := db.NewInsert().Model(dup).Exec(context.Background())
	assert.Error(t, err)
}
