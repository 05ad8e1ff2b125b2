//go:build integration

package cart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/database/dbtest"
	"ms-travel-sales/internal/database/migrations"
	"ms-travel-sales/internal/lock/locktest"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "travel",
				"POSTGRES_PASSWORD": "travel",
				"POSTGRES_DB":       "travel",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		DSN:          fmt.Sprintf("postgres://travel:travel@%s:%s/travel?sslmode=disable", host, port.Port()),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
		ConnectTries: 5,
	}
	log := logger.NewConsoleLogger(&bytes.Buffer{})

	db, err := database.Open(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Apply(ctx, db, cfg, log))
	return db
}

func TestPostgresConcurrentReservationsNeverOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	db := startPostgres(t)
	locker, _ := locktest.New(t)
	svc := NewService(db, locker, nil, logger.NewConsoleLogger(&bytes.Buffer{}))

	dest := dbtest.Destination(t, db, "Havana")
	sch := dbtest.Schedule(t, db, dest.ID, time.Now().Add(72*time.Hour))
	dbtest.Tickets(t, db, dest, sch.ID,
		models.TicketGeneral, models.TicketGeneral, models.TicketGeneral, models.TicketGeneral, models.TicketGeneral,
		models.TicketVIP, models.TicketVIP)

	const buyers = 10
	users := make([]*models.User, buyers)
	for i := range users {
		users[i] = dbtest.User(t, db, models.RoleClient)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := svc.ReserveTickets(context.Background(), userID, ReserveRequest{
				DestinationID: dest.ID, ScheduleID: sch.ID, Quantity: 2,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, models.ErrInsufficientInventory), "unexpected error: %v", err)
		}(u.ID)
	}
	wg.Wait()

	assert.LessOrEqual(t, succeeded, 3)
	assert.Equal(t, succeeded*2, dbtest.CountTickets(t, db, sch.ID, models.TicketInCart))
	assert.Equal(t, 7-succeeded*2, dbtest.CountTickets(t, db, sch.ID, models.TicketFree))

	var attached int
	err := db.NewSelect().Model((*models.Ticket)(nil)).
		Where("schedule_id = ?", sch.ID).
		Where("cart_id IS NOT NULL").
		ColumnExpr("count(*)").
		Scan(context.Background(), &attached)
	require.NoError(t, err)
	assert.Equal(t, succeeded*2, attached)
}
