package inventory

import (
	"math/rand/v2"
	"testing"

	"ms-travel-sales/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSequenceCycles(t *testing.T) {
	p := Sequence(models.TicketVIP, models.TicketGeneral)

	got := make([]models.TicketType, 5)
	for i := range got {
		got[i] = p.Pick()
	}
	assert.Equal(t, []models.TicketType{
		models.TicketVIP, models.TicketGeneral, models.TicketVIP, models.TicketGeneral, models.TicketVIP,
	}, got)
}

func TestSequenceWithoutTypesPicksGeneral(t *testing.T) {
	p := Sequence()

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			assert.Equal(t, models.TicketGeneral, p.Pick())
		}
	})
}

func TestWeightedPickerBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	never := &WeightedPicker{VIPShare: 0, Rand: r}
	always := &WeightedPicker{VIPShare: 1, Rand: r}
	for i := 0; i < 20; i++ {
		assert.Equal(t, models.TicketGeneral, never.Pick())
		assert.Equal(t, models.TicketVIP, always.Pick())
	}
}
