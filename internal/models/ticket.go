package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Transport string

const (
	TransportAir Transport = "air"
	TransportSea Transport = "sea"
)

type Destination struct {
	bun.BaseModel `bun:"table:destinations,alias:d"`

	ID                string          `bun:"id,pk" json:"id"`
	Name              string          `bun:"name,notnull" json:"name"`
	Description       string          `bun:"description,nullzero" json:"description,omitempty"`
	Transport         Transport       `bun:"transport,notnull" json:"transport"`
	GeneralPrice      decimal.Decimal `bun:"general_price,type:decimal(10,2),notnull" json:"general_price"`
	VIPPrice          decimal.Decimal `bun:"vip_price,type:decimal(10,2),notnull" json:"vip_price"`
	BaseShippingPrice decimal.Decimal `bun:"base_shipping_price,type:decimal(10,2),notnull" json:"base_shipping_price"`
	PerKiloExtra      decimal.Decimal `bun:"per_kilo_extra,type:decimal(10,2),notnull" json:"per_kilo_extra"`
	BaseWeightKg      decimal.Decimal `bun:"base_weight_kg,type:decimal(6,2),notnull" json:"base_weight_kg"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// ShippingSurcharge is the optional per-destination extra shipping fee.
type ShippingSurcharge struct {
	bun.BaseModel `bun:"table:shipping_surcharges,alias:ss"`

	ID            string          `bun:"id,pk" json:"id"`
	DestinationID string          `bun:"destination_id,unique,notnull" json:"destination_id"`
	ExtraFee      decimal.Decimal `bun:"extra_fee,type:decimal(10,2),notnull" json:"extra_fee"`
	Description   string          `bun:"description,nullzero" json:"description,omitempty"`
}

type Schedule struct {
	bun.BaseModel `bun:"table:schedules,alias:sch"`

	ID            string    `bun:"id,pk" json:"id"`
	DestinationID string    `bun:"destination_id,notnull" json:"destination_id"`
	DepartsAt     time.Time `bun:"departs_at,notnull" json:"departs_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

type TicketType string

const (
	TicketGeneral TicketType = "general"
	TicketVIP     TicketType = "vip"
)

func (t TicketType) Valid() bool {
	return t == TicketGeneral || t == TicketVIP
}

type TicketState string

const (
	TicketFree   TicketState = "free"
	TicketInCart TicketState = "in_cart"
	TicketSold   TicketState = "sold"
)

// PoolSize is the number of tickets generated for every schedule.
const PoolSize = 100

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID            string          `bun:"id,pk" json:"id"`
	Number        int             `bun:"number,notnull" json:"number"`
	Type          TicketType      `bun:"type,notnull" json:"type"`
	Price         decimal.Decimal `bun:"price,type:decimal(10,2),notnull" json:"price"`
	DestinationID string          `bun:"destination_id,notnull" json:"destination_id"`
	ScheduleID    string          `bun:"schedule_id,notnull" json:"schedule_id"`
	State         TicketState     `bun:"state,notnull" json:"state"`
	UserID        string          `bun:"user_id,nullzero" json:"user_id,omitempty"`
	CartID        string          `bun:"cart_id,nullzero" json:"cart_id,omitempty"`
	SaleID        string          `bun:"sale_id,nullzero" json:"sale_id,omitempty"`
}

type PackageType string

const (
	PackageElectronics PackageType = "electronics"
	PackageClothing    PackageType = "clothing"
	PackageMachinery   PackageType = "machinery"
	PackageOther       PackageType = "other"
)

func (p PackageType) Valid() bool {
	switch p {
	case PackageElectronics, PackageClothing, PackageMachinery, PackageOther:
		return true
	}
	return false
}

type PackageState string

const (
	PackageInCart PackageState = "in_cart"
	PackageSold   PackageState = "sold"
)

type Package struct {
	bun.BaseModel `bun:"table:packages,alias:p"`

	ID            string          `bun:"id,pk" json:"id"`
	Type          PackageType     `bun:"type,notnull" json:"type"`
	WeightKg      decimal.Decimal `bun:"weight_kg,type:decimal(6,2),notnull" json:"weight_kg"`
	Description   string          `bun:"description,notnull" json:"description"`
	DestinationID string          `bun:"destination_id,notnull" json:"destination_id"`
	SenderID      string          `bun:"sender_id,notnull" json:"sender_id"`
	Recipient     string          `bun:"recipient,notnull" json:"recipient"`
	ShippingPrice decimal.Decimal `bun:"shipping_price,type:decimal(10,2),notnull" json:"shipping_price"`
	State         PackageState    `bun:"state,notnull" json:"state"`
	CartID        string          `bun:"cart_id,nullzero" json:"cart_id,omitempty"`
	SaleID        string          `bun:"sale_id,nullzero" json:"sale_id,omitempty"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`
}
