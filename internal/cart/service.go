package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/lock"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/metrics"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/pricing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Service struct {
	bun    *bun.DB
	DB     *DB
	Locker lock.Locker
	Events *kafka.Emitter
	Logger *logger.Logger
}

func NewService(db *bun.DB, locker lock.Locker, events *kafka.Emitter, log *logger.Logger) *Service {
	return &Service{
		bun:    db,
		DB:     &DB{Bun: db},
		Locker: locker,
		Events: events,
		Logger: log,
	}
}

// mutate runs fn under the user's cart lock inside one transaction.
func (s *Service) mutate(ctx context.Context, userID string, fn func(ctx context.Context, db *DB) error) error {
	return s.Locker.WithUser(ctx, userID, func(ctx context.Context) error {
		return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, s.DB.WithTx(tx))
		})
	})
}

// Recompute refreshes the cached quantity and total of c from its attached
// items. An emptied cart is deleted and reported with removed=true.
func Recompute(ctx context.Context, db *DB, c *models.Cart) (removed bool, err error) {
	kind, err := KindFor(c.Kind)
	if err != nil {
		return false, err
	}
	items, err := kind.Items(ctx, db.Bun, c.ID)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		return true, db.DeleteCarts(ctx, c.ID)
	}
	c.Quantity = len(items)
	c.Total = Sum(items)
	if err := db.SaveTotals(ctx, c); err != nil {
		return false, fmt.Errorf("save cart totals: %w", err)
	}
	return false, nil
}

// ---------------- TICKET RESERVATION ----------------

type ReserveRequest struct {
	DestinationID string            `json:"destination_id"`
	ScheduleID    string            `json:"schedule_id"`
	Quantity      int               `json:"quantity"`
	Type          models.TicketType `json:"type,omitempty"`
}

func (r ReserveRequest) validate() error {
	return models.Invalid(validation.ValidateStruct(&r,
		validation.Field(&r.DestinationID, validation.Required),
		validation.Field(&r.ScheduleID, validation.Required),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&r.Type, models.Known),
	))
}

// ReserveTickets moves exactly Quantity free tickets into the user's cart
// for the schedule, or nothing at all.
func (s *Service) ReserveTickets(ctx context.Context, userID string, req ReserveRequest) (*models.Cart, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var c *models.Cart
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		sch, err := db.GetSchedule(ctx, req.ScheduleID)
		if err != nil {
			return err
		}
		if sch.DestinationID != req.DestinationID {
			return fmt.Errorf("%w: schedule %s does not serve destination %s", models.ErrNotFound, req.ScheduleID, req.DestinationID)
		}

		tickets, err := db.SelectFreeTickets(ctx, req.DestinationID, req.ScheduleID, req.Type, req.Quantity)
		if err != nil {
			return err
		}
		if len(tickets) < req.Quantity {
			return fmt.Errorf("%w: requested %d, %d free", models.ErrInsufficientInventory, req.Quantity, len(tickets))
		}

		c, err = db.GetOrCreateCart(ctx, userID, models.CartTickets, req.DestinationID, req.ScheduleID)
		if err != nil {
			return err
		}

		ids := make([]string, len(tickets))
		for i, t := range tickets {
			ids[i] = t.ID
		}
		n, err := db.AttachTickets(ctx, c.ID, ids)
		if err != nil {
			return err
		}
		if n != int64(req.Quantity) {
			return fmt.Errorf("%w: %d of %d tickets were taken concurrently", models.ErrInsufficientInventory, int64(req.Quantity)-n, req.Quantity)
		}

		_, err = Recompute(ctx, db, c)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientInventory) {
			metrics.ReservationFailures.WithLabelValues("insufficient_inventory").Inc()
		}
		return nil, err
	}

	typ := string(req.Type)
	if typ == "" {
		typ = "any"
	}
	metrics.TicketsReserved.WithLabelValues(typ).Add(float64(req.Quantity))
	s.Logger.LogCart("RESERVE", userID, fmt.Sprintf("%d tickets for schedule %s, cart total %s", req.Quantity, req.ScheduleID, c.Total.StringFixed(2)))
	s.Events.CartReserved(ctx, kafka.CartChanged{
		UserID:        userID,
		CartID:        c.ID,
		Kind:          string(models.CartTickets),
		DestinationID: c.DestinationID,
		ScheduleID:    c.ScheduleID,
		Quantity:      req.Quantity,
	})
	return c, nil
}

// ---------------- PACKAGES ----------------

type PackageRequest struct {
	DestinationID string             `json:"destination_id"`
	Type          models.PackageType `json:"type"`
	WeightKg      decimal.Decimal    `json:"weight_kg"`
	Description   string             `json:"description"`
	Recipient     string             `json:"recipient"`
}

func (r PackageRequest) validate() error {
	r.Description = strings.TrimSpace(r.Description)
	r.Recipient = strings.TrimSpace(r.Recipient)
	return models.Invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, models.Known),
		validation.Field(&r.WeightKg, models.Positive),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Recipient, validation.Required),
	))
}

// AddPackage prices a new package and places it in the user's package cart
// for the destination.
func (s *Service) AddPackage(ctx context.Context, userID string, req PackageRequest) (*models.Package, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	pkg := &models.Package{
		ID:            uuid.NewString(),
		Type:          req.Type,
		WeightKg:      req.WeightKg,
		Description:   strings.TrimSpace(req.Description),
		DestinationID: req.DestinationID,
		SenderID:      userID,
		Recipient:     strings.TrimSpace(req.Recipient),
		State:         models.PackageInCart,
		CreatedAt:     time.Now().UTC(),
	}

	var c *models.Cart
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		if err := s.price(ctx, db, pkg); err != nil {
			return err
		}
		var err error
		c, err = db.GetOrCreateCart(ctx, userID, models.CartPackages, req.DestinationID, "")
		if err != nil {
			return err
		}
		pkg.CartID = c.ID
		if err := db.InsertPackage(ctx, pkg); err != nil {
			return fmt.Errorf("insert package: %w", err)
		}
		_, err = Recompute(ctx, db, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogCart("PACKAGE", userID, fmt.Sprintf("package %s priced %s", pkg.ID, pkg.ShippingPrice.StringFixed(2)))
	s.Events.CartReserved(ctx, kafka.CartChanged{
		UserID:        userID,
		CartID:        c.ID,
		Kind:          string(models.CartPackages),
		DestinationID: c.DestinationID,
		Quantity:      1,
	})
	return pkg, nil
}

// UpdatePackage edits an in-cart package and prices it again. The
// destination stays the one the package was added for.
func (s *Service) UpdatePackage(ctx context.Context, userID, packageID string, req PackageRequest) (*models.Package, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var pkg *models.Package
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		var err error
		if pkg, err = s.ownedPackage(ctx, db, userID, packageID); err != nil {
			return err
		}
		if req.DestinationID != "" && req.DestinationID != pkg.DestinationID {
			return fmt.Errorf("%w: package %s cannot change destination", models.ErrValidation, packageID)
		}
		pkg.Type = req.Type
		pkg.WeightKg = req.WeightKg
		pkg.Description = strings.TrimSpace(req.Description)
		pkg.Recipient = strings.TrimSpace(req.Recipient)
		if err := s.price(ctx, db, pkg); err != nil {
			return err
		}
		if err := db.UpdatePackage(ctx, pkg); err != nil {
			return fmt.Errorf("update package: %w", err)
		}
		c, err := db.GetCart(ctx, pkg.CartID)
		if err != nil {
			return err
		}
		_, err = Recompute(ctx, db, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (s *Service) price(ctx context.Context, db *DB, pkg *models.Package) error {
	dest, err := db.GetDestination(ctx, pkg.DestinationID)
	if err != nil {
		return err
	}
	sur, err := db.GetSurcharge(ctx, dest.ID)
	if err != nil {
		return fmt.Errorf("load surcharge: %w", err)
	}
	return pricing.Reprice(pkg, dest, sur)
}

func (s *Service) ownedPackage(ctx context.Context, db *DB, userID, packageID string) (*models.Package, error) {
	pkg, err := db.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.SenderID != userID || pkg.State != models.PackageInCart || pkg.CartID == "" {
		return nil, fmt.Errorf("%w: package %s is not in your cart", models.ErrNotFound, packageID)
	}
	return pkg, nil
}

// ---------------- RELEASE ----------------

// RemoveTicket returns one ticket to the free pool and shrinks its cart.
func (s *Service) RemoveTicket(ctx context.Context, userID, ticketID string) error {
	var c *models.Cart
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		t, err := db.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.State != models.TicketInCart || t.CartID == "" {
			return fmt.Errorf("%w: ticket %s is not in a cart", models.ErrNotFound, ticketID)
		}
		if c, err = s.ownedCart(ctx, db, userID, t.CartID); err != nil {
			return err
		}
		if _, err := (TicketKind{}).Release(ctx, db.Bun, []string{ticketID}); err != nil {
			return err
		}
		_, err = Recompute(ctx, db, c)
		return err
	})
	if err != nil {
		return err
	}
	s.released(ctx, userID, c, 1)
	return nil
}

// RemovePackage discards one in-cart package.
func (s *Service) RemovePackage(ctx context.Context, userID, packageID string) error {
	var c *models.Cart
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		pkg, err := s.ownedPackage(ctx, db, userID, packageID)
		if err != nil {
			return err
		}
		if c, err = s.ownedCart(ctx, db, userID, pkg.CartID); err != nil {
			return err
		}
		if _, err := (PackageKind{}).Release(ctx, db.Bun, []string{packageID}); err != nil {
			return err
		}
		_, err = Recompute(ctx, db, c)
		return err
	})
	if err != nil {
		return err
	}
	s.released(ctx, userID, c, 1)
	return nil
}

// RemoveCart releases every item of one cart and deletes it.
func (s *Service) RemoveCart(ctx context.Context, userID, cartID string) error {
	var c *models.Cart
	var n int64
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		var err error
		if c, err = s.ownedCart(ctx, db, userID, cartID); err != nil {
			return err
		}
		n, err = releaseCarts(ctx, db, []models.Cart{*c})
		return err
	})
	if err != nil {
		return err
	}
	s.released(ctx, userID, c, int(n))
	return nil
}

// Empty releases every cart of the user. It reports how many items were
// released.
func (s *Service) Empty(ctx context.Context, userID string) (int, error) {
	var total int64
	err := s.mutate(ctx, userID, func(ctx context.Context, db *DB) error {
		for _, kind := range Kinds {
			carts, err := db.ListCarts(ctx, userID, kind.Kind(), true)
			if err != nil {
				return err
			}
			n, err := releaseCarts(ctx, db, carts)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.released(ctx, userID, nil, int(total))
	return int(total), nil
}

func releaseCarts(ctx context.Context, db *DB, carts []models.Cart) (int64, error) {
	var released int64
	var cartIDs []string
	for _, c := range carts {
		kind, err := KindFor(c.Kind)
		if err != nil {
			return 0, err
		}
		items, err := kind.Items(ctx, db.Bun, c.ID)
		if err != nil {
			return 0, err
		}
		n, err := kind.Release(ctx, db.Bun, ids(items))
		if err != nil {
			return 0, err
		}
		metrics.ItemsReleased.WithLabelValues(string(c.Kind)).Add(float64(n))
		released += n
		cartIDs = append(cartIDs, c.ID)
	}
	if err := db.DeleteCarts(ctx, cartIDs...); err != nil {
		return 0, fmt.Errorf("delete carts: %w", err)
	}
	return released, nil
}

func (s *Service) ownedCart(ctx context.Context, db *DB, userID, cartID string) (*models.Cart, error) {
	c, err := db.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("%w: cart %s", models.ErrNotFound, cartID)
	}
	return c, nil
}

func (s *Service) released(ctx context.Context, userID string, c *models.Cart, n int) {
	ev := kafka.CartChanged{UserID: userID, Quantity: n}
	if c != nil {
		ev.CartID = c.ID
		ev.Kind = string(c.Kind)
		ev.DestinationID = c.DestinationID
		ev.ScheduleID = c.ScheduleID
	}
	s.Logger.LogCart("RELEASE", userID, fmt.Sprintf("%d items released", n))
	s.Events.CartReleased(ctx, ev)
}

// ---------------- VIEW ----------------

type CartView struct {
	models.Cart
	Items []Item `json:"items"`
}

type View struct {
	Carts []CartView      `json:"carts"`
	Total decimal.Decimal `json:"total"`
}

// View lists the user's carts, tickets first, with their items and the
// grand total.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	v := &View{Carts: []CartView{}, Total: decimal.Zero}
	for _, kind := range Kinds {
		carts, err := s.DB.ListCarts(ctx, userID, kind.Kind(), false)
		if err != nil {
			return nil, err
		}
		for _, c := range carts {
			items, err := kind.Items(ctx, s.DB.Bun, c.ID)
			if err != nil {
				return nil, err
			}
			v.Carts = append(v.Carts, CartView{Cart: c, Items: items})
			v.Total = v.Total.Add(c.Total)
		}
	}
	return v, nil
}
