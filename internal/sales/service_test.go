package sales

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"ms-travel-sales/internal/database/dbtest"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/sales/qr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db      *bun.DB
	svc     *Service
	havana  *models.Destination
	lima    *models.Destination
	tickets []models.Ticket
	next    int
}

func setup(t *testing.T) *fixture {
	db := dbtest.New(t)
	f := &fixture{
		db:     db,
		svc:    NewService(db, qr.NewQRGenerator("test-secret"), logger.NewConsoleLogger(&bytes.Buffer{})),
		havana: dbtest.Destination(t, db, "Havana"),
		lima:   dbtest.Destination(t, db, "Lima"),
	}
	sch := dbtest.Schedule(t, db, f.havana.ID, time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC))
	f.tickets = dbtest.Tickets(t, db, f.havana, sch.ID,
		models.TicketGeneral, models.TicketGeneral, models.TicketVIP, models.TicketGeneral, models.TicketGeneral)
	return f
}

// sell records a sale of the next n tickets and pkgs packages to Lima.
func (f *fixture) sell(t *testing.T, user *models.User, at time.Time, n, pkgs int) *models.Sale {
	t.Helper()
	ctx := context.Background()

	sale := &models.Sale{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ItemCount:   n + pkgs,
		TotalPaid:   decimal.Zero,
		PurchasedAt: at.UTC(),
	}
	sold := f.tickets[f.next : f.next+n]
	f.next += n
	for _, tk := range sold {
		sale.TotalPaid = sale.TotalPaid.Add(tk.Price)
	}
	sale.TotalPaid = sale.TotalPaid.Add(decimal.NewFromInt(int64(10 * pkgs)))
	switch {
	case n > 0:
		sale.DestinationID = f.havana.ID
	case pkgs > 0:
		sale.DestinationID = f.lima.ID
	}
	_, err := f.db.NewInsert().Model(sale).Exec(ctx)
	require.NoError(t, err)

	for _, tk := range sold {
		_, err := f.db.NewUpdate().Model((*models.Ticket)(nil)).
			Set("state = ?", models.TicketSold).
			Set("user_id = ?", user.ID).
			Set("sale_id = ?", sale.ID).
			Where("id = ?", tk.ID).
			Exec(ctx)
		require.NoError(t, err)
	}
	for i := 0; i < pkgs; i++ {
		_, err := f.db.NewInsert().Model(&models.Package{
			ID:            uuid.NewString(),
			Type:          models.PackageClothing,
			WeightKg:      decimal.NewFromInt(2),
			Description:   "clothes",
			DestinationID: f.lima.ID,
			SenderID:      user.ID,
			Recipient:     "Rosa",
			ShippingPrice: decimal.NewFromInt(10),
			State:         models.PackageSold,
			SaleID:        sale.ID,
			CreatedAt:     at.UTC(),
		}).Exec(ctx)
		require.NoError(t, err)
	}
	return sale
}

func actor(u *models.User) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role}
}

func TestHistoryScopesToOwnerNewestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	ana := dbtest.User(t, f.db, models.RoleClient)
	ben := dbtest.User(t, f.db, models.RoleClient)
	first := f.sell(t, ana, base, 2, 0)
	second := f.sell(t, ana, base.Add(time.Hour), 0, 1)
	f.sell(t, ben, base.Add(2*time.Hour), 1, 1)

	page, err := f.svc.History(ctx, actor(ana), Filter{})
	require.NoError(t, err)
	require.Len(t, page.Sales, 2)
	assert.Equal(t, second.ID, page.Sales[0].ID)
	assert.Equal(t, first.ID, page.Sales[1].ID)
	assert.Equal(t, "Havana", page.Sales[1].DestinationName)
	assert.Equal(t, ana.Name, page.Sales[0].CustomerName)
	assert.Equal(t, 2, page.Sales[1].Tickets)
	assert.Equal(t, 1, page.Sales[0].Packages)

	assert.Equal(t, Stats{Sales: 2, Tickets: 2, Packages: 1, Mixed: 0}, page.PageStats)
	assert.Equal(t, Stats{Sales: 2, Tickets: 2, Packages: 1, Mixed: 0}, page.Global)
}

func TestHistoryAdminSeesAllAndFiltersByKind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	admin := dbtest.User(t, f.db, models.RoleAdmin)
	ana := dbtest.User(t, f.db, models.RoleClient)
	ben := dbtest.User(t, f.db, models.RoleClient)
	onlyTickets := f.sell(t, ana, base, 1, 0)
	onlyPackages := f.sell(t, ana, base.Add(time.Minute), 0, 2)
	mixed := f.sell(t, ben, base.Add(2*time.Minute), 2, 1)

	all, err := f.svc.History(ctx, actor(admin), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, Stats{Sales: 3, Tickets: 3, Packages: 3, Mixed: 1}, all.Global)

	for kind, want := range map[Kind]string{
		KindTickets:  onlyTickets.ID,
		KindPackages: onlyPackages.ID,
		KindMixed:    mixed.ID,
	} {
		page, err := f.svc.History(ctx, actor(admin), Filter{Kind: kind})
		require.NoError(t, err, kind)
		require.Len(t, page.Sales, 1, kind)
		assert.Equal(t, want, page.Sales[0].ID, kind)
		assert.Equal(t, all.Global, page.Global, "global stats ignore filters")
	}

	_, err = f.svc.History(ctx, actor(admin), Filter{Kind: "boats"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestHistoryQuery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	admin := dbtest.User(t, f.db, models.RoleAdmin)
	ana := dbtest.User(t, f.db, models.RoleClient)
	ben := dbtest.User(t, f.db, models.RoleClient)
	toHavana := f.sell(t, ana, base, 1, 0)
	toLima := f.sell(t, ben, base.Add(time.Minute), 0, 1)

	page, err := f.svc.History(ctx, actor(admin), Filter{Query: "HAV"})
	require.NoError(t, err)
	require.Len(t, page.Sales, 1)
	assert.Equal(t, toHavana.ID, page.Sales[0].ID)

	page, err = f.svc.History(ctx, actor(admin), Filter{Query: ben.NationalID})
	require.NoError(t, err)
	require.Len(t, page.Sales, 1)
	assert.Equal(t, toLima.ID, page.Sales[0].ID)

	page, err = f.svc.History(ctx, actor(admin), Filter{Query: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, page.Sales)
	assert.Equal(t, 1, page.Pages)
}

func TestHistoryPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ana := dbtest.User(t, f.db, models.RoleClient)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		f.sell(t, ana, base.Add(time.Duration(i)*time.Minute), 0, 0)
	}

	first, err := f.svc.History(ctx, actor(ana), Filter{})
	require.NoError(t, err)
	assert.Len(t, first.Sales, PageSize)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 2, first.Pages)
	assert.Equal(t, 12, first.Total)

	last, err := f.svc.History(ctx, actor(ana), Filter{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 2, last.Page)
	assert.Len(t, last.Sales, 2)
	assert.True(t, last.Sales[1].PurchasedAt.Equal(base), "oldest sale is last")
}

func TestInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ana := dbtest.User(t, f.db, models.RoleClient)
	ben := dbtest.User(t, f.db, models.RoleClient)
	admin := dbtest.User(t, f.db, models.RoleAdmin)
	sale := f.sell(t, ana, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), 3, 1)

	inv, err := f.svc.Invoice(ctx, actor(ana), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.NationalID, inv.Customer.NationalID)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(460)), "got %s", inv.Total)
	require.Len(t, inv.Items, 4)

	assert.Equal(t, models.CartTickets, inv.Items[0].Kind)
	assert.Equal(t, "Ticket #1 to Havana", inv.Items[0].Description)
	assert.Equal(t, "general, departs 2026-05-01 08:30", inv.Items[0].Detail)
	assert.Equal(t, "vip, departs 2026-05-01 08:30", inv.Items[2].Detail)
	assert.Equal(t, models.CartPackages, inv.Items[3].Kind)
	assert.Equal(t, "Package to Lima for Rosa", inv.Items[3].Description)
	assert.Equal(t, "clothing, 2.00 kg", inv.Items[3].Detail)

	sum := decimal.Zero
	for _, it := range inv.Items {
		assert.Equal(t, 1, it.Quantity)
		sum = sum.Add(it.Price)
	}
	assert.True(t, sum.Equal(inv.Total))

	_, err = f.svc.Invoice(ctx, actor(ben), sale.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.svc.Invoice(ctx, actor(admin), sale.ID)
	assert.NoError(t, err)
	_, err = f.svc.Invoice(ctx, actor(ana), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInvoiceQR(t *testing.T) {
	f := setup(t)
	ana := dbtest.User(t, f.db, models.RoleClient)
	sale := f.sell(t, ana, time.Now(), 1, 0)

	png, err := f.svc.InvoiceQR(context.Background(), actor(ana), sale.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestHoldings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ana := dbtest.User(t, f.db, models.RoleClient)
	f.sell(t, ana, time.Now(), 3, 2)

	c := &models.Cart{
		ID: uuid.NewString(), UserID: ana.ID, Kind: models.CartTickets,
		DestinationID: f.havana.ID, ScheduleID: f.tickets[3].ScheduleID,
		Quantity: 1, Total: f.tickets[3].Price, CreatedAt: time.Now().UTC(),
	}
	_, err := f.db.NewInsert().Model(c).Exec(ctx)
	require.NoError(t, err)
	_, err = f.db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("state = ?", models.TicketInCart).
		Set("cart_id = ?", c.ID).
		Where("id = ?", f.tickets[3].ID).
		Exec(ctx)
	require.NoError(t, err)

	tickets, err := f.svc.MyTickets(ctx, ana.ID)
	require.NoError(t, err)
	got := map[string]int{}
	for _, h := range tickets {
		got[fmt.Sprintf("%s/%s/%s", h.State, h.Type, h.Price.StringFixed(0))] = h.Count
	}
	assert.Equal(t, map[string]int{
		"in_cart/general/100": 1,
		"sold/general/100":    2,
		"sold/vip/250":        1,
	}, got)

	packages, err := f.svc.MyPackages(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, 2, packages[0].Count)
	assert.Equal(t, string(models.PackageClothing), packages[0].Type)
}
