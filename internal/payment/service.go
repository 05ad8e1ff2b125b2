package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-travel-sales/internal/cart"
	"ms-travel-sales/internal/kafka"
	"ms-travel-sales/internal/lock"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/metrics"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Service struct {
	bun    *bun.DB
	DB     *DB
	Engine *settlement.Engine
	Locker lock.Locker
	Events *kafka.Emitter
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(db *bun.DB, engine *settlement.Engine, locker lock.Locker, events *kafka.Emitter, log *logger.Logger) *Service {
	return &Service{
		bun:    db,
		DB:     &DB{Bun: db},
		Engine: engine,
		Locker: locker,
		Events: events,
		Logger: log,
		now:    time.Now,
	}
}

type SubmitRequest struct {
	Reference   string `json:"reference"`
	Notes       string `json:"notes,omitempty"`
	EvidenceRef string `json:"evidence_ref,omitempty"`
}

// Submit records a pending mobile payment for the current cart total.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (*models.Payment, error) {
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, fmt.Errorf("%w: payment reference is required", models.ErrValidation)
	}

	p := &models.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Method:      models.PaymentMobile,
		Reference:   ref,
		Notes:       req.Notes,
		EvidenceRef: req.EvidenceRef,
		State:       models.PaymentPending,
		CreatedAt:   s.now().UTC(),
	}

	err := s.Locker.WithUser(ctx, userID, func(ctx context.Context) error {
		amount, err := s.cartTotal(ctx, userID)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return fmt.Errorf("%w: cart is empty", models.ErrEmptyPurchase)
		}
		p.Amount = amount
		return s.DB.CreatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	metrics.Payments.WithLabelValues(string(models.PaymentPending)).Inc()
	s.Logger.LogPayment("SUBMIT", p.ID, fmt.Sprintf("user %s submitted %s ref %s", userID, p.Amount.StringFixed(2), ref))
	s.Events.PaymentSubmitted(ctx, s.event(p))
	return p, nil
}

func (s *Service) cartTotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	db := &cart.DB{Bun: s.bun}
	total := decimal.Zero
	for _, kind := range cart.Kinds {
		carts, err := db.ListCarts(ctx, userID, kind.Kind(), false)
		if err != nil {
			return decimal.Zero, err
		}
		for _, c := range carts {
			total = total.Add(c.Total)
		}
	}
	return total, nil
}

type ApproveResult struct {
	Payment models.Payment `json:"payment"`
	Sale    models.Sale    `json:"sale"`
}

// Approve marks a pending payment approved and settles the payer's carts in
// the same transaction. When settlement fails, or the carts no longer add up
// to the submitted amount, the payment stays pending.
func (s *Service) Approve(ctx context.Context, actor models.Actor, paymentID string) (*ApproveResult, error) {
	if !actor.IsAdmin() {
		s.Logger.LogSecurity("PAYMENT_APPROVE", fmt.Sprintf("user %s with role %s tried to approve %s", actor.UserID, actor.Role, paymentID))
		return nil, fmt.Errorf("%w: only admins approve payments", models.ErrForbidden)
	}

	p, err := s.DB.GetPayment(ctx, paymentID, false)
	if err != nil {
		return nil, err
	}

	var res *settlement.Result
	err = s.Locker.WithUser(ctx, p.UserID, func(ctx context.Context) error {
		return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			db := s.DB.WithTx(tx)
			var err error
			if p, err = db.GetPayment(ctx, paymentID, true); err != nil {
				return err
			}
			if !p.Approve(s.now().UTC()) {
				return fmt.Errorf("%w: payment %s is %s", models.ErrInvalidTransition, paymentID, p.State)
			}
			if res, err = s.Engine.SettleTx(ctx, tx, p.UserID); err != nil {
				return err
			}
			if !res.Sale.TotalPaid.Equal(p.Amount) {
				return fmt.Errorf("%w: payment %s covers %s, carts total %s",
					models.ErrAmountMismatch, paymentID, p.Amount.StringFixed(2), res.Sale.TotalPaid.StringFixed(2))
			}
			p.SaleID = res.Sale.ID
			return db.UpdateVerification(ctx, p)
		})
	})
	if err != nil {
		return nil, err
	}

	s.Engine.Committed(ctx, res)
	metrics.Payments.WithLabelValues(string(models.PaymentApproved)).Inc()
	s.Logger.LogPayment("APPROVE", p.ID, fmt.Sprintf("approved by %s, sale %s total %s", actor.UserID, res.Sale.ID, res.Sale.TotalPaid.StringFixed(2)))
	s.Events.PaymentApproved(ctx, s.event(p))
	return &ApproveResult{Payment: *p, Sale: res.Sale}, nil
}

// Reject closes a pending payment. Carts and their reserved items are left
// as they are.
func (s *Service) Reject(ctx context.Context, actor models.Actor, paymentID string) (*models.Payment, error) {
	if !actor.IsAdmin() {
		s.Logger.LogSecurity("PAYMENT_REJECT", fmt.Sprintf("user %s with role %s tried to reject %s", actor.UserID, actor.Role, paymentID))
		return nil, fmt.Errorf("%w: only admins reject payments", models.ErrForbidden)
	}

	var p *models.Payment
	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		db := s.DB.WithTx(tx)
		var err error
		if p, err = db.GetPayment(ctx, paymentID, true); err != nil {
			return err
		}
		if !p.Reject(s.now().UTC()) {
			return fmt.Errorf("%w: payment %s is %s", models.ErrInvalidTransition, paymentID, p.State)
		}
		return db.UpdateVerification(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	metrics.Payments.WithLabelValues(string(models.PaymentRejected)).Inc()
	s.Logger.LogPayment("REJECT", p.ID, "rejected by "+actor.UserID)
	s.Events.PaymentRejected(ctx, s.event(p))
	return p, nil
}

func (s *Service) ListPending(ctx context.Context, actor models.Actor) ([]models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins review payments", models.ErrForbidden)
	}
	return s.DB.ListByState(ctx, models.PaymentPending)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Payment, error) {
	return s.DB.ListForUser(ctx, userID)
}

func (s *Service) event(p *models.Payment) kafka.PaymentChanged {
	return kafka.PaymentChanged{
		PaymentID: p.ID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		State:     string(p.State),
		SaleID:    p.SaleID,
	}
}
