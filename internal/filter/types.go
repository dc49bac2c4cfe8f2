package filter

// Style is a project design style.
type Style string

const (
	StyleModern       Style = "MODERN"
	StyleMinimal      Style = "MINIMAL"
	StyleTraditional  Style = "TRADITIONAL"
	StyleLuxury       Style = "LUXURY"
	StyleIndustrial   Style = "INDUSTRIAL"
	StyleScandinavian Style = "SCANDINAVIAN"
)

// PropertyType is the kind of property a project is for.
type PropertyType string

const (
	TypeApartment PropertyType = "APARTMENT"
	TypeVilla     PropertyType = "VILLA"
	TypeHouse     PropertyType = "HOUSE"
	TypeOffice    PropertyType = "OFFICE"
	TypeStudio    PropertyType = "STUDIO"
)

// Option is a deal option a listing offers.
type Option string

const (
	OptionBarter Option = "BARTER"
	OptionRent   Option = "RENT"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Range is an inclusive price range.
type Range struct {
	Start int64 `json:"start" validate:"gte=0"`
	End   int64 `json:"end" validate:"gte=0,gtefield=Start"`
}

// DefaultPriceRange is the price slider's full extent.
var DefaultPriceRange = Range{Start: 0, End: 2000000}

// Search holds the narrowing predicates of a listing query.
type Search struct {
	StyleList   []Style        `json:"projectStyleList,omitempty" validate:"omitempty,dive,oneof=MODERN MINIMAL TRADITIONAL LUXURY INDUSTRIAL SCANDINAVIAN"`
	TypeList    []PropertyType `json:"projectTypeList,omitempty" validate:"omitempty,dive,oneof=APARTMENT VILLA HOUSE OFFICE STUDIO"`
	PricesRange *Range         `json:"pricesRange,omitempty"`
	Text        string         `json:"text,omitempty" validate:"max=200"`
	MemberID    string         `json:"memberId,omitempty"`
	Options     []Option       `json:"options,omitempty" validate:"omitempty,dive,oneof=BARTER RENT"`
}

// FilterState is the full listing query: pagination, ordering and search.
type FilterState struct {
	Page      int       `json:"page" validate:"gte=1"`
	Limit     int       `json:"limit" validate:"gte=1,lte=100"`
	Sort      string    `json:"sort,omitempty"`
	Direction Direction `json:"direction,omitempty" validate:"omitempty,oneof=ASC DESC"`
	Search    Search    `json:"search"`
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := f
	out.Search.StyleList = append([]Style(nil), f.Search.StyleList...)
	out.Search.TypeList = append([]PropertyType(nil), f.Search.TypeList...)
	out.Search.Options = append([]Option(nil), f.Search.Options...)
	if f.Search.PricesRange != nil {
		r := *f.Search.PricesRange
		out.Search.PricesRange = &r
	}
	return out
}

// Defaults are the values a listing page starts from and falls back to.
type Defaults struct {
	PriceRange Range
	State      FilterState
}

// NewDefaults returns defaults for the first page of size limit, newest first.
func NewDefaults(priceRange Range, limit int) Defaults {
	return Defaults{
		PriceRange: priceRange,
		State: FilterState{
			Page:      1,
			Limit:     limit,
			Sort:      "createdAt",
			Direction: Desc,
		},
	}
}
