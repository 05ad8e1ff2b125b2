package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentApproved PaymentState = "approved"
	PaymentRejected PaymentState = "rejected"
)

type PaymentMethod string

const PaymentMobile PaymentMethod = "mobile"

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:pay"`

	ID          string          `bun:"id,pk" json:"id"`
	UserID      string          `bun:"user_id,notnull" json:"user_id"`
	Amount      decimal.Decimal `bun:"amount,type:decimal(10,2),notnull" json:"amount"`
	Method      PaymentMethod   `bun:"method,notnull" json:"method"`
	Reference   string          `bun:"reference,notnull" json:"reference"`
	Notes       string          `bun:"notes,nullzero" json:"notes,omitempty"`
	EvidenceRef string          `bun:"evidence_ref,nullzero" json:"evidence_ref,omitempty"`
	State       PaymentState    `bun:"state,notnull" json:"state"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	VerifiedAt  time.Time       `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	SaleID      string          `bun:"sale_id,nullzero" json:"sale_id,omitempty"`
}

// Approve moves a pending payment to approved. It reports false when the
// payment already reached a terminal state.
func (p *Payment) Approve(at time.Time) bool {
	if p.State != PaymentPending {
		return false
	}
	p.State = PaymentApproved
	p.VerifiedAt = at
	return true
}

// Reject moves a pending payment to rejected.
func (p *Payment) Reject(at time.Time) bool {
	if p.State != PaymentPending {
		return false
	}
	p.State = PaymentRejected
	p.VerifiedAt = at
	return true
}
