package settlement

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"ms-travel-sales/internal/cart"
	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/database/dbtest"
	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/kafka/kafkatest"
	"ms-travel-sales/internal/lock/locktest"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db     *bun.DB
	carts  *cart.Service
	engine *Engine
	events *kafkatest.Recorder
	user   *models.User
	dest   *models.Destination
	sch    *models.Schedule
}

func setup(t *testing.T) fixture {
	db := dbtest.New(t)
	locker, _ := locktest.New(t)
	rec := &kafkatest.Recorder{}
	log := logger.NewConsoleLogger(&bytes.Buffer{})
	em := kafka.NewEmitter(rec, config.Load().Kafka.Topics, log)

	f := fixture{
		db:     db,
		carts:  cart.NewService(db, locker, em, log),
		engine: NewEngine(db, locker, em, log),
		events: rec,
		user:   dbtest.User(t, db, models.RoleClient),
		dest:   dbtest.Destination(t, db, "Havana"),
	}
	f.sch = dbtest.Schedule(t, db, f.dest.ID, time.Now().Add(24*time.Hour))
	dbtest.Tickets(t, db, f.dest, f.sch.ID,
		models.TicketGeneral, models.TicketGeneral, models.TicketGeneral, models.TicketVIP)
	return f
}

func count(t *testing.T, q *bun.SelectQuery) int {
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSettleConvertsAllCartsIntoOneSale(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.ReserveTickets(ctx, f.user.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 2, Type: models.TicketGeneral,
	})
	require.NoError(t, err)

	other := dbtest.Destination(t, f.db, "Lima")
	_, err = f.carts.AddPackage(ctx, f.user.ID, cart.PackageRequest{
		DestinationID: other.ID, Type: models.PackageOther,
		WeightKg: decimal.NewFromInt(15), Description: "box", Recipient: "Eva",
	})
	require.NoError(t, err)

	soldBefore := dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketSold)

	res, err := f.engine.Settle(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Sale.ItemCount)
	assert.Equal(t, 2, res.Tickets)
	assert.Equal(t, 1, res.Packages)
	assert.True(t, res.Sale.TotalPaid.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, f.dest.ID, res.Sale.DestinationID, "first ticket cart wins")

	assert.Zero(t, count(t, f.db.NewSelect().Model((*models.Cart)(nil)).Where("user_id = ?", f.user.ID)))
	assert.Equal(t, soldBefore+2, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketSold))

	var sold []models.Ticket
	require.NoError(t, f.db.NewSelect().Model(&sold).Where("sale_id = ?", res.Sale.ID).Scan(ctx))
	require.Len(t, sold, 2)
	for _, tk := range sold {
		assert.Equal(t, models.TicketSold, tk.State)
		assert.Equal(t, f.user.ID, tk.UserID)
		assert.Empty(t, tk.CartID)
	}

	var pkg models.Package
	require.NoError(t, f.db.NewSelect().Model(&pkg).Where("sale_id = ?", res.Sale.ID).Scan(ctx))
	assert.Equal(t, models.PackageSold, pkg.State)

	var stored models.Sale
	require.NoError(t, f.db.NewSelect().Model(&stored).Where("id = ?", res.Sale.ID).Scan(ctx))
	assert.True(t, stored.TotalPaid.Equal(decimal.NewFromInt(220)))

	assert.Len(t, f.events.Topic(config.Load().Kafka.Topics.SaleCompleted), 1)
}

func TestSettlePackagesOnlyUsesPackageDestination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.AddPackage(ctx, f.user.ID, cart.PackageRequest{
		DestinationID: f.dest.ID, Type: models.PackageOther,
		WeightKg: decimal.NewFromInt(2), Description: "box", Recipient: "Eva",
	})
	require.NoError(t, err)

	res, err := f.engine.Settle(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.dest.ID, res.Sale.DestinationID)
	assert.Zero(t, res.Tickets)
	assert.True(t, res.Sale.TotalPaid.Equal(decimal.NewFromInt(10)))
}

func TestSettleEmptyFailsWithoutWriting(t *testing.T) {
	f := setup(t)

	_, err := f.engine.Settle(context.Background(), f.user.ID)
	assert.True(t, errors.Is(err, models.ErrEmptyPurchase))
	assert.Zero(t, count(t, f.db.NewSelect().Model((*models.Sale)(nil))))
	assert.Empty(t, f.events.Messages())
}

func TestSettleTwiceSecondIsEmpty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.ReserveTickets(ctx, f.user.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.engine.Settle(ctx, f.user.ID)
	require.NoError(t, err)
	_, err = f.engine.Settle(ctx, f.user.ID)
	assert.True(t, errors.Is(err, models.ErrEmptyPurchase))
	assert.Equal(t, 1, count(t, f.db.NewSelect().Model((*models.Sale)(nil))))
}

func TestSettleLeavesOtherUsersAlone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := dbtest.User(t, f.db, models.RoleClient)

	_, err := f.carts.ReserveTickets(ctx, f.user.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 1,
	})
	require.NoError(t, err)
	_, err = f.carts.ReserveTickets(ctx, other.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 2,
	})
	require.NoError(t, err)

	_, err = f.engine.Settle(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketInCart))
	assert.Equal(t, 1, count(t, f.db.NewSelect().Model((*models.Cart)(nil)).Where("user_id = ?", other.ID)))
}

func TestSettleTxRollsBackWithCaller(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.carts.ReserveTickets(ctx, f.user.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 1,
	})
	require.NoError(t, err)

	boom := errors.New("caller failed after settlement")
	err = f.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := f.engine.SettleTx(ctx, tx, f.user.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, count(t, f.db.NewSelect().Model((*models.Sale)(nil))))
	assert.Equal(t, 1, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketInCart))
}
