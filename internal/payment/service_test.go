package payment

import (
	"bytes"
	"context"
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
	"ms-travel-sales/internal/settlement"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db       *bun.DB
	carts    *cart.Service
	payments *Service
	events   *kafkatest.Recorder
	topics   config.TopicConfig
	client   *models.User
	admin    models.Actor
	dest     *models.Destination
	sch      *models.Schedule
}

func setup(t *testing.T) fixture {
	db := dbtest.New(t)
	locker, _ := locktest.New(t)
	rec := &kafkatest.Recorder{}
	log := logger.NewConsoleLogger(&bytes.Buffer{})
	topics := config.Load().Kafka.Topics
	em := kafka.NewEmitter(rec, topics, log)
	engine := settlement.NewEngine(db, locker, em, log)

	admin := dbtest.User(t, db, models.RoleAdmin)
	f := fixture{
		db:       db,
		carts:    cart.NewService(db, locker, em, log),
		payments: NewService(db, engine, locker, em, log),
		events:   rec,
		topics:   topics,
		client:   dbtest.User(t, db, models.RoleClient),
		admin:    models.Actor{UserID: admin.ID, Role: admin.Role},
		dest:     dbtest.Destination(t, db, "Cancun"),
	}
	f.sch = dbtest.Schedule(t, db, f.dest.ID, time.Now().Add(48*time.Hour))
	dbtest.Tickets(t, db, f.dest, f.sch.ID, models.TicketGeneral, models.TicketGeneral, models.TicketVIP)
	return f
}

func (f fixture) reserve(t *testing.T, qty int) {
	_, err := f.carts.ReserveTickets(context.Background(), f.client.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: qty, Type: models.TicketGeneral,
	})
	require.NoError(t, err)
}

func (f fixture) submit(t *testing.T) *models.Payment {
	p, err := f.payments.Submit(context.Background(), f.client.ID, SubmitRequest{Reference: "PM-0001"})
	require.NoError(t, err)
	return p
}

func TestSubmitUsesCartTotal(t *testing.T) {
	f := setup(t)
	f.reserve(t, 2)

	p := f.submit(t)
	assert.Equal(t, models.PaymentPending, p.State)
	assert.Equal(t, models.PaymentMobile, p.Method)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(200)), "got %s", p.Amount)
	assert.Len(t, f.events.Topic(f.topics.PaymentSubmitted), 1)

	mine, err := f.payments.ListForUser(context.Background(), f.client.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)
}

func TestSubmitValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.payments.Submit(ctx, f.client.ID, SubmitRequest{Reference: "  "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.payments.Submit(ctx, f.client.ID, SubmitRequest{Reference: "PM-1"})
	assert.ErrorIs(t, err, models.ErrEmptyPurchase)
}

func TestApproveSettlesCarts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 2)
	p := f.submit(t)

	res, err := f.payments.Approve(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, res.Payment.State)
	assert.Equal(t, res.Sale.ID, res.Payment.SaleID)
	assert.False(t, res.Payment.VerifiedAt.IsZero())
	assert.True(t, res.Sale.TotalPaid.Equal(decimal.NewFromInt(200)))

	stored, err := f.payments.DB.GetPayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, stored.State)
	assert.Equal(t, res.Sale.ID, stored.SaleID)

	assert.Equal(t, 2, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketSold))
	assert.Len(t, f.events.Topic(f.topics.PaymentApproved), 1)
	assert.Len(t, f.events.Topic(f.topics.SaleCompleted), 1)

	pending, err := f.payments.ListPending(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApproveRefusesCartsGrownAfterSubmit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 1)
	p := f.submit(t)
	require.True(t, p.Amount.Equal(decimal.NewFromInt(100)))

	_, err := f.carts.ReserveTickets(ctx, f.client.ID, cart.ReserveRequest{
		DestinationID: f.dest.ID, ScheduleID: f.sch.ID, Quantity: 1, Type: models.TicketVIP,
	})
	require.NoError(t, err)

	_, err = f.payments.Approve(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, models.ErrAmountMismatch)

	stored, err := f.payments.DB.GetPayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.State)
	assert.Empty(t, stored.SaleID)

	assert.Equal(t, 2, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketInCart))
	assert.Zero(t, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketSold))
	assert.Empty(t, f.events.Topic(f.topics.PaymentApproved))
	assert.Empty(t, f.events.Topic(f.topics.SaleCompleted))
}

func TestApproveTwiceIsInvalid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 1)
	p := f.submit(t)

	_, err := f.payments.Approve(ctx, f.admin, p.ID)
	require.NoError(t, err)
	_, err = f.payments.Approve(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.payments.Reject(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestApproveWithEmptyCartStaysPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 1)
	p := f.submit(t)

	_, err := f.carts.Empty(ctx, f.client.ID)
	require.NoError(t, err)

	_, err = f.payments.Approve(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, models.ErrEmptyPurchase)

	stored, err := f.payments.DB.GetPayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.State)
	assert.Empty(t, stored.SaleID)
	assert.Empty(t, f.events.Topic(f.topics.PaymentApproved))
}

func TestRejectKeepsReservation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 2)
	p := f.submit(t)

	rejected, err := f.payments.Reject(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.State)

	assert.Equal(t, 2, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketInCart))
	assert.Zero(t, dbtest.CountTickets(t, f.db, f.sch.ID, models.TicketSold))
	assert.Len(t, f.events.Topic(f.topics.PaymentRejected), 1)
}

func TestReviewRequiresAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.reserve(t, 1)
	p := f.submit(t)
	client := models.Actor{UserID: f.client.ID, Role: models.RoleClient}

	_, err := f.payments.Approve(ctx, client, p.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.payments.Reject(ctx, client, p.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.payments.ListPending(ctx, client)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.payments.Approve(ctx, f.admin, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
