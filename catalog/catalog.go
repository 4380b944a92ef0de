// Package catalog holds the immutable list of purchasable curbside services.
//
// The catalog is seeded once at process start and shared read-only by the
// engine. Services are addressed by slug; unit prices are integer minor
// units (see types.Money).
package catalog

import (
	"fmt"

	"github.com/xraph/curbside/id"
	"github.com/xraph/curbside/types"
)

// Catalog is an ordered, slug-indexed set of services.
type Catalog struct {
	services []Service
	bySlug   map[string]int
}

// New builds a Catalog from the given services, assigning IDs to entries
// that don't carry one. It returns an error on duplicate or empty slugs.
func New(services ...Service) (*Catalog, error) {
	c := &Catalog{
		services: make([]Service, 0, len(services)),
		bySlug:   make(map[string]int, len(services)),
	}

	for _, svc := range services {
		if svc.Slug == "" {
			return nil, fmt.Errorf("catalog: service %q has empty slug", svc.Name)
		}
		if _, exists := c.bySlug[svc.Slug]; exists {
			return nil, fmt.Errorf("catalog: duplicate slug %q", svc.Slug)
		}
		if svc.ID.IsNil() {
			svc.ID = id.NewServiceID()
		}
		if svc.Interval == "" {
			svc.Interval = IntervalNone
		}

		c.bySlug[svc.Slug] = len(c.services)
		c.services = append(c.services, svc)
	}

	return c, nil
}

// MustNew is like New but panics on error. Use for hardcoded catalogs.
func MustNew(services ...Service) *Catalog {
	c, err := New(services...)
	if err != nil {
		panic(err)
	}
	return c
}

// Services returns a copy of all catalog entries in seed order.
func (c *Catalog) Services() []Service {
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}

// Find returns the service with the given slug.
func (c *Catalog) Find(slug string) (Service, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Service{}, false
	}
	return c.services[i], true
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.services) }

// Default returns the standard waste-collection catalog.
func Default() *Catalog {
	return MustNew(
		Service{
			Slug:      "base-fee",
			Name:      "Base Service Fee",
			Category:  CategoryBaseFee,
			UnitPrice: types.USD(2900),
			Interval:  IntervalMonth,
		},
		Service{
			Slug:       "small-trash-can",
			Name:       "Small Trash Can",
			Category:   CategoryBaseService,
			UnitPrice:  types.USD(2000),
			SetupFee:   types.USD(6000),
			StickerFee: types.USD(2500),
			Interval:   IntervalMonth,
		},
		Service{
			Slug:       "medium-trash-can",
			Name:       "Medium Trash Can",
			Category:   CategoryBaseService,
			UnitPrice:  types.USD(2500),
			SetupFee:   types.USD(6500),
			StickerFee: types.USD(2500),
			Interval:   IntervalMonth,
		},
		Service{
			Slug:       "large-trash-can",
			Name:       "Large Trash Can",
			Category:   CategoryBaseService,
			UnitPrice:  types.USD(3000),
			SetupFee:   types.USD(7000),
			StickerFee: types.USD(2500),
			Interval:   IntervalMonth,
		},
		Service{
			Slug:       "recycling-can",
			Name:       "Recycling Can",
			Category:   CategoryBaseService,
			UnitPrice:  types.USD(1500),
			SetupFee:   types.USD(5500),
			StickerFee: types.USD(2500),
			Interval:   IntervalMonth,
		},
		Service{
			Slug:       "yard-waste-can",
			Name:       "Yard Waste Can",
			Category:   CategoryBaseService,
			UnitPrice:  types.USD(1800),
			SetupFee:   types.USD(6000),
			StickerFee: types.USD(2500),
			Interval:   IntervalMonth,
		},
		Service{
			Slug:      "extra-weekly-pickup",
			Name:      "Extra Weekly Pickup",
			Category:  CategoryUpgrade,
			UnitPrice: types.USD(1000),
			Interval:  IntervalMonth,
		},
		Service{
			Slug:      "backdoor-service",
			Name:      "Backdoor Service",
			Category:  CategoryUpgrade,
			UnitPrice: types.USD(1200),
			Interval:  IntervalMonth,
		},
		Service{
			Slug:      "bulk-item-pickup",
			Name:      "Bulk Item Pickup",
			Category:  CategoryStandalone,
			UnitPrice: types.USD(4500),
			Interval:  IntervalNone,
		},
		Service{
			Slug:      "can-cleaning",
			Name:      "Can Cleaning",
			Category:  CategoryStandalone,
			UnitPrice: types.USD(2500),
			Interval:  IntervalNone,
		},
	)
}
