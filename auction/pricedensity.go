package auction

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
)

const (
	// PriceResourcePerDeadline is the name of the price weighted resource
	// density.
	PriceResourcePerDeadline = "PRICE_RESOURCE_PER_DEADLINE"
)

// PriceDensity orders the residents of a server while it repacks itself
// around a bidding task. Residents are re-admitted in descending score
// order, so a higher score means a resident is likelier to keep its
// place and its revenue.
type PriceDensity interface {
	// Name returns the name of the density implementation.
	Name() string
	// Evaluate returns the retention score of the task from its current
	// price.
	Evaluate(task *model.Task) float64
}

// priceResourcePerDeadline weighs the price a resident pays by its
// summed resource requirements per deadline unit, favouring tasks that
// pay a lot for resources they need quickly.
type priceResourcePerDeadline struct {
	name      string
	resources valuedensity.Density
}

// NewPriceResourcePerDeadline returns the price resource per deadline density
func NewPriceResourcePerDeadline() PriceDensity {
	return &priceResourcePerDeadline{
		name:      PriceResourcePerDeadline,
		resources: valuedensity.NewResourceSum(),
	}
}

// Name is implementation of PriceDensity.Name
func (p *priceResourcePerDeadline) Name() string {
	return p.name
}

// Evaluate is implementation of PriceDensity.Evaluate
func (p *priceResourcePerDeadline) Evaluate(task *model.Task) float64 {
	return task.Price() * p.resources.Evaluate(task) / task.Deadline
}
