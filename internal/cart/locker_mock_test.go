package cart

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"ms-travel-sales/internal/database/dbtest"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) WithUser(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, userID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func TestBusyLockLeavesInventoryUntouched(t *testing.T) {
	db := dbtest.New(t)
	locker := new(MockLocker)
	svc := NewService(db, locker, nil, logger.NewConsoleLogger(&bytes.Buffer{}))

	user := dbtest.User(t, db, models.RoleClient)
	dest := dbtest.Destination(t, db, "Havana")
	sch := dbtest.Schedule(t, db, dest.ID, time.Now().Add(24*time.Hour))
	dbtest.Tickets(t, db, dest, sch.ID, models.TicketGeneral, models.TicketGeneral)

	locker.On("WithUser", mock.Anything, user.ID).
		Return(fmt.Errorf("%w: cart of %s is locked", models.ErrBusy, user.ID)).Once()

	_, err := svc.ReserveTickets(context.Background(), user.ID, ReserveRequest{
		DestinationID: dest.ID, ScheduleID: sch.ID, Quantity: 1,
	})
	assert.ErrorIs(t, err, models.ErrBusy)
	assert.Equal(t, 2, dbtest.CountTickets(t, db, sch.ID, models.TicketFree))
	locker.AssertExpectations(t)
}

func TestEveryMutationTakesTheUserLock(t *testing.T) {
	db := dbtest.New(t)
	locker := new(MockLocker)
	svc := NewService(db, locker, nil, logger.NewConsoleLogger(&bytes.Buffer{}))

	user := dbtest.User(t, db, models.RoleClient)
	dest := dbtest.Destination(t, db, "Havana")
	sch := dbtest.Schedule(t, db, dest.ID, time.Now().Add(24*time.Hour))
	dbtest.Tickets(t, db, dest, sch.ID, models.TicketGeneral, models.TicketGeneral)

	locker.On("WithUser", mock.Anything, user.ID).Return(nil)

	ctx := context.Background()
	_, err := svc.ReserveTickets(ctx, user.ID, ReserveRequest{DestinationID: dest.ID, ScheduleID: sch.ID, Quantity: 2})
	require.NoError(t, err)
	n, err := svc.Empty(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	locker.AssertNumberOfCalls(t, "WithUser", 2)
	assert.Equal(t, 2, dbtest.CountTickets(t, db, sch.ID, models.TicketFree))
}
