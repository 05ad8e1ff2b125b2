// Package sales serves the sales history, invoices and per-user holdings.
package sales

import (
	"context"
	"fmt"

	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/sales/qr"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const PageSize = 10

type Kind string

const (
	KindAll      Kind = ""
	KindTickets  Kind = "tickets"
	KindPackages Kind = "packages"
	KindMixed    Kind = "mixed"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAll, KindTickets, KindPackages, KindMixed:
		return true
	}
	return false
}

type Filter struct {
	Query string
	Kind  Kind
	Page  int
}

type Page struct {
	Sales     []SaleRow `json:"sales"`
	Page      int       `json:"page"`
	Pages     int       `json:"pages"`
	Total     int       `json:"total"`
	PageStats Stats     `json:"page_stats"`
	Global    Stats     `json:"global_stats"`
}

type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type InvoiceItem struct {
	Quantity    int             `json:"quantity"`
	Kind        models.CartKind `json:"kind"`
	Description string          `json:"description"`
	Detail      string          `json:"detail"`
	Price       decimal.Decimal `json:"price"`
}

// Invoice is the renderer-agnostic invoice of one sale.
type Invoice struct {
	Sale     models.Sale     `json:"sale"`
	Customer Customer        `json:"customer"`
	Items    []InvoiceItem   `json:"items"`
	Total    decimal.Decimal `json:"total"`
}

type Service struct {
	DB     *DB
	QR     *qr.QRGenerator
	Logger *logger.Logger
}

func NewService(db *bun.DB, qrGen *qr.QRGenerator, log *logger.Logger) *Service {
	return &Service{DB: &DB{Bun: db}, QR: qrGen, Logger: log}
}

// scope returns the user filter for actor: admins see every sale.
func scope(actor models.Actor) string {
	if actor.IsAdmin() {
		return ""
	}
	return actor.UserID
}

// History returns one page of sales, newest first, with stats for the page
// and for every sale the actor may see.
func (s *Service) History(ctx context.Context, actor models.Actor, f Filter) (*Page, error) {
	if !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown sale kind %q", models.ErrValidation, f.Kind)
	}
	userID := scope(actor)

	total, err := s.DB.CountSales(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	rows, err := s.DB.ListSales(ctx, userID, f, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	global, err := s.DB.SaleStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Page{Sales: rows, Page: page, Pages: pages, Total: total, Global: global}
	for _, r := range rows {
		out.PageStats.Sales++
		out.PageStats.Tickets += r.Tickets
		out.PageStats.Packages += r.Packages
		if r.Tickets > 0 && r.Packages > 0 {
			out.PageStats.Mixed++
		}
	}
	return out, nil
}

// Invoice builds the invoice of saleID. Only the buyer and admins may read it.
func (s *Service) Invoice(ctx context.Context, actor models.Actor, saleID string) (*Invoice, error) {
	sale, err := s.DB.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.UserID != actor.UserID && !actor.IsAdmin() {
		s.Logger.LogSecurity("INVOICE", fmt.Sprintf("user %s denied invoice %s", actor.UserID, saleID))
		return nil, fmt.Errorf("%w: sale %s belongs to another user", models.ErrForbidden, saleID)
	}

	user, err := s.DB.GetUser(ctx, sale.UserID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.DB.saleTickets(ctx, saleID)
	if err != nil {
		return nil, err
	}
	packages, err := s.DB.salePackages(ctx, saleID)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		Sale: *sale,
		Customer: Customer{
			ID:         user.ID,
			Name:       user.Name,
			NationalID: user.NationalID,
			Email:      user.Email,
			Phone:      user.Phone,
		},
		Items: make([]InvoiceItem, 0, len(tickets)+len(packages)),
		Total: sale.TotalPaid,
	}
	for _, t := range tickets {
		inv.Items = append(inv.Items, InvoiceItem{
			Quantity:    1,
			Kind:        models.CartTickets,
			Description: fmt.Sprintf("Ticket #%d to %s", t.Number, t.DestinationName),
			Detail:      fmt.Sprintf("%s, departs %s", t.Type, t.DepartsAt.UTC().Format("2006-01-02 15:04")),
			Price:       t.Price,
		})
	}
	for _, p := range packages {
		inv.Items = append(inv.Items, InvoiceItem{
			Quantity:    1,
			Kind:        models.CartPackages,
			Description: fmt.Sprintf("Package to %s for %s", p.DestinationName, p.Recipient),
			Detail:      fmt.Sprintf("%s, %s kg", p.Type, p.WeightKg.StringFixed(2)),
			Price:       p.ShippingPrice,
		})
	}
	return inv, nil
}

// InvoiceQR renders the encrypted reference of an invoice as a PNG.
func (s *Service) InvoiceQR(ctx context.Context, actor models.Actor, saleID string) ([]byte, error) {
	inv, err := s.Invoice(ctx, actor, saleID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.Encode(qr.InvoiceCode{
		SaleID:      inv.Sale.ID,
		UserID:      inv.Sale.UserID,
		ItemCount:   inv.Sale.ItemCount,
		Total:       inv.Total,
		PurchasedAt: inv.Sale.PurchasedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode invoice qr: %w", err)
	}
	s.Logger.LogSale("INVOICE_QR", saleID, "issued to "+actor.UserID)
	return png, nil
}

func (s *Service) MyTickets(ctx context.Context, userID string) ([]Holding, error) {
	return s.DB.TicketHoldings(ctx, userID)
}

func (s *Service) MyPackages(ctx context.Context, userID string) ([]Holding, error) {
	return s.DB.PackageHoldings(ctx, userID)
}
