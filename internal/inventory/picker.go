package inventory

import (
	"math/rand/v2"

	"ms-travel-sales/internal/models"
)

// TypePicker decides the class of each generated ticket.
type TypePicker interface {
	Pick() models.TicketType
}

// PickerFunc adapts a function to TypePicker.
type PickerFunc func() models.TicketType

func (f PickerFunc) Pick() models.TicketType { return f() }

// DefaultVIPShare is the probability that a generated ticket is vip.
const DefaultVIPShare = 0.3

type WeightedPicker struct {
	VIPShare float64
	Rand     *rand.Rand
}

// NewWeightedPicker returns the 70 general / 30 vip picker.
func NewWeightedPicker() *WeightedPicker {
	return &WeightedPicker{VIPShare: DefaultVIPShare}
}

func (p *WeightedPicker) Pick() models.TicketType {
	var roll float64
	if p.Rand != nil {
		roll = p.Rand.Float64()
	} else {
		roll = rand.Float64()
	}
	if roll < p.VIPShare {
		return models.TicketVIP
	}
	return models.TicketGeneral
}

// Sequence cycles through types in order. Used to make pools deterministic.
// With no types every pick is general.
func Sequence(types ...models.TicketType) TypePicker {
	if len(types) == 0 {
		return PickerFunc(func() models.TicketType { return models.TicketGeneral })
	}
	i := 0
	return PickerFunc(func() models.TicketType {
		t := types[i%len(types)]
		i++
		return t
	})
}
