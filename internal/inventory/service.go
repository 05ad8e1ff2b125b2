package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-travel-sales/internal/kafka"
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
	Picker TypePicker
	Events *kafka.Emitter
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(db *bun.DB, picker TypePicker, events *kafka.Emitter, log *logger.Logger) *Service {
	if picker == nil {
		picker = NewWeightedPicker()
	}
	return &Service{
		bun:    db,
		DB:     &DB{Bun: db},
		Picker: picker,
		Events: events,
		Logger: log,
		now:    time.Now,
	}
}

func requireManager(actor models.Actor) error {
	if !actor.Role.CanManageInventory() {
		return fmt.Errorf("%w: role %q cannot manage inventory", models.ErrForbidden, actor.Role)
	}
	return nil
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}
	return nil
}

// ---------------- DESTINATIONS ----------------

type DestinationInput struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Transport         models.Transport `json:"transport"`
	GeneralPrice      decimal.Decimal  `json:"general_price"`
	VIPPrice          decimal.Decimal  `json:"vip_price"`
	BaseShippingPrice *decimal.Decimal `json:"base_shipping_price,omitempty"`
	PerKiloExtra      *decimal.Decimal `json:"per_kilo_extra,omitempty"`
	BaseWeightKg      *decimal.Decimal `json:"base_weight_kg,omitempty"`
}

func (in DestinationInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return models.Invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Transport, validation.Required, validation.In(models.TransportAir, models.TransportSea)),
		validation.Field(&in.GeneralPrice, models.NotNegative),
		validation.Field(&in.VIPPrice, models.NotNegative),
		validation.Field(&in.BaseShippingPrice, models.NotNegative),
		validation.Field(&in.PerKiloExtra, models.NotNegative),
		validation.Field(&in.BaseWeightKg, models.NotNegative),
	))
}

func (in DestinationInput) apply(dest *models.Destination) {
	dest.Name = strings.TrimSpace(in.Name)
	dest.Description = in.Description
	dest.Transport = in.Transport
	dest.GeneralPrice = in.GeneralPrice
	dest.VIPPrice = in.VIPPrice
	if in.BaseShippingPrice != nil {
		dest.BaseShippingPrice = *in.BaseShippingPrice
	}
	if in.PerKiloExtra != nil {
		dest.PerKiloExtra = *in.PerKiloExtra
	}
	if in.BaseWeightKg != nil {
		dest.BaseWeightKg = *in.BaseWeightKg
	}
}

func (s *Service) CreateDestination(ctx context.Context, actor models.Actor, in DestinationInput) (*models.Destination, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	rate := pricing.DefaultRate()
	dest := &models.Destination{
		ID:                uuid.NewString(),
		BaseShippingPrice: rate.BasePrice,
		PerKiloExtra:      rate.PerKilo,
		BaseWeightKg:      rate.BaseWeightKg,
		CreatedAt:         s.now().UTC(),
	}
	in.apply(dest)

	if err := s.DB.CreateDestination(ctx, dest); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	s.Logger.LogInventory("DESTINATION", dest.ID, "created "+dest.Name)
	return dest, nil
}

// UpdateDestination changes the destination. Existing tickets keep the
// price they were generated with.
func (s *Service) UpdateDestination(ctx context.Context, actor models.Actor, id string, in DestinationInput) (*models.Destination, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	dest, err := s.DB.GetDestination(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(dest)
	if err := s.DB.UpdateDestination(ctx, dest); err != nil {
		return nil, fmt.Errorf("update destination: %w", err)
	}
	return dest, nil
}

func (s *Service) DeleteDestination(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if err := s.DB.DeleteDestination(ctx, id); err != nil {
		return err
	}
	s.Logger.LogInventory("DESTINATION", id, "deleted")
	return nil
}

func (s *Service) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	return s.DB.GetDestination(ctx, id)
}

func (s *Service) ListDestinations(ctx context.Context) ([]models.Destination, error) {
	return s.DB.ListDestinations(ctx)
}

// ---------------- SURCHARGES ----------------

func (s *Service) SetSurcharge(ctx context.Context, actor models.Actor, destinationID string, fee decimal.Decimal, description string) (*models.ShippingSurcharge, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("%w: surcharge must not be negative", models.ErrValidation)
	}
	if _, err := s.DB.GetDestination(ctx, destinationID); err != nil {
		return nil, err
	}

	sur := &models.ShippingSurcharge{
		ID:            uuid.NewString(),
		DestinationID: destinationID,
		ExtraFee:      fee,
		Description:   description,
	}
	if err := s.DB.UpsertSurcharge(ctx, sur); err != nil {
		return nil, fmt.Errorf("save surcharge: %w", err)
	}
	return s.DB.GetSurcharge(ctx, destinationID)
}

func (s *Service) RemoveSurcharge(ctx context.Context, actor models.Actor, destinationID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.DB.DeleteSurcharge(ctx, destinationID)
}

// ---------------- SCHEDULES ----------------

// CreateSchedule stores the schedule and generates its ticket pool in the
// same transaction.
func (s *Service) CreateSchedule(ctx context.Context, actor models.Actor, destinationID string, departsAt time.Time) (*models.Schedule, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if departsAt.IsZero() {
		return nil, fmt.Errorf("%w: departure time is required", models.ErrValidation)
	}

	sch := &models.Schedule{
		ID:            uuid.NewString(),
		DestinationID: destinationID,
		DepartsAt:     departsAt.UTC(),
		CreatedAt:     s.now().UTC(),
	}

	var pool PoolResult
	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		db := s.DB.WithTx(tx)
		dest, err := db.GetDestination(ctx, destinationID)
		if err != nil {
			return err
		}
		if err := db.CreateSchedule(ctx, sch); err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}
		pool, err = s.GeneratePool(ctx, db, dest, sch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPool(ctx, pool)
	return sch, nil
}

// UpdateSchedule re-saves the schedule. Pool generation runs again but the
// idempotency guard keeps the existing tickets untouched.
func (s *Service) UpdateSchedule(ctx context.Context, actor models.Actor, id string, departsAt time.Time) (*models.Schedule, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if departsAt.IsZero() {
		return nil, fmt.Errorf("%w: departure time is required", models.ErrValidation)
	}

	var sch *models.Schedule
	var pool PoolResult
	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		db := s.DB.WithTx(tx)
		var err error
		if sch, err = db.GetSchedule(ctx, id); err != nil {
			return err
		}
		sch.DepartsAt = departsAt.UTC()
		if err := db.UpdateSchedule(ctx, sch); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		dest, err := db.GetDestination(ctx, sch.DestinationID)
		if err != nil {
			return err
		}
		pool, err = s.GeneratePool(ctx, db, dest, sch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPool(ctx, pool)
	return sch, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.DB.WithTx(tx).DeleteSchedule(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.LogInventory("SCHEDULE", id, "deleted")
	return nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	return s.DB.GetSchedule(ctx, id)
}

func (s *Service) ListSchedules(ctx context.Context, destinationID string) ([]models.Schedule, error) {
	if _, err := s.DB.GetDestination(ctx, destinationID); err != nil {
		return nil, err
	}
	return s.DB.ListSchedules(ctx, destinationID)
}

// Availability summarizes a schedule's pool by state and type.
type Availability struct {
	ScheduleID  string `json:"schedule_id"`
	Total       int    `json:"total"`
	Free        int    `json:"free"`
	FreeGeneral int    `json:"free_general"`
	FreeVIP     int    `json:"free_vip"`
	InCart      int    `json:"in_cart"`
	Sold        int    `json:"sold"`
}

func (s *Service) Availability(ctx context.Context, scheduleID string) (*Availability, error) {
	if _, err := s.DB.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	rows, err := s.DB.TicketStats(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}

	av := &Availability{ScheduleID: scheduleID}
	for _, r := range rows {
		av.Total += r.N
		switch r.State {
		case models.TicketFree:
			av.Free += r.N
			if r.Type == models.TicketVIP {
				av.FreeVIP += r.N
			} else {
				av.FreeGeneral += r.N
			}
		case models.TicketInCart:
			av.InCart += r.N
		case models.TicketSold:
			av.Sold += r.N
		}
	}
	return av, nil
}

func (s *Service) afterPool(ctx context.Context, pool PoolResult) {
	if pool.Created == 0 {
		return
	}
	metrics.TicketsGenerated.Add(float64(pool.Created))
	s.Events.PoolGenerated(ctx, kafka.PoolGenerated{
		DestinationID: pool.DestinationID,
		ScheduleID:    pool.ScheduleID,
		DepartsAt:     pool.DepartsAt,
		Created:       pool.Created,
		VIP:           pool.VIP,
	})
}
