package catalog

import (
	"time"

	"github.com/nfrund/homeplace/internal/filter"
)

// Sample returns a small demo catalog for the development gateway.
func Sample() *Catalog {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	return New(
		Project{ID: "p1", Title: "Sunlit Loft Renovation", Description: "Open plan loft with oak floors", Style: filter.StyleModern, Type: filter.TypeApartment, Price: 450000, MemberID: "m1", Options: []filter.Option{filter.OptionRent}, CreatedAt: base},
		Project{ID: "p2", Title: "Nordic Family House", Description: "Light wood and white walls", Style: filter.StyleScandinavian, Type: filter.TypeHouse, Price: 1200000, MemberID: "m2", CreatedAt: base.Add(day)},
		Project{ID: "p3", Title: "Brick Warehouse Studio", Description: "Exposed ducts and steel beams", Style: filter.StyleIndustrial, Type: filter.TypeStudio, Price: 300000, MemberID: "m1", Options: []filter.Option{filter.OptionBarter}, CreatedAt: base.Add(2 * day)},
		Project{ID: "p4", Title: "Seaside Villa", Description: "Marble terrace facing the bay", Style: filter.StyleLuxury, Type: filter.TypeVilla, Price: 1950000, MemberID: "m3", Options: []filter.Option{filter.OptionRent, filter.OptionBarter}, CreatedAt: base.Add(3 * day)},
		Project{ID: "p5", Title: "Quiet Corner Office", Description: "Minimal desk layout", Style: filter.StyleMinimal, Type: filter.TypeOffice, Price: 220000, MemberID: "m2", CreatedAt: base.Add(4 * day)},
		Project{ID: "p6", Title: "Hanok Courtyard House", Description: "Traditional timber frame", Style: filter.StyleTraditional, Type: filter.TypeHouse, Price: 880000, MemberID: "m3", CreatedAt: base.Add(5 * day)},
	)
}
