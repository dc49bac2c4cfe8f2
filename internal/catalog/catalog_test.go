package catalog

import (
	"testing"

	"github.com/nfrund/homeplace/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(p Page) []string {
	out := make([]string, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.ID
	}
	return out
}

func baseState() filter.FilterState {
	return filter.NewDefaults(filter.DefaultPriceRange, 10).State
}

func TestSearch_DefaultNewestFirst(t *testing.T) {
	got := Sample().Search(baseState())
	assert.Equal(t, 6, got.Total)
	assert.Equal(t, []string{"p6", "p5", "p4", "p3", "p2", "p1"}, ids(got))
}

func TestSearch_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		patch func(*filter.FilterState)
		want  []string
	}{
		{"style", func(f *filter.FilterState) { f.Search.StyleList = []filter.Style{filter.StyleModern, filter.StyleLuxury} }, []string{"p4", "p1"}},
		{"type", func(f *filter.FilterState) { f.Search.TypeList = []filter.PropertyType{filter.TypeHouse} }, []string{"p6", "p2"}},
		{"price", func(f *filter.FilterState) { f.Search.PricesRange = &filter.Range{Start: 200000, End: 310000} }, []string{"p5", "p3"}},
		{"member", func(f *filter.FilterState) { f.Search.MemberID = "m1" }, []string{"p3", "p1"}},
		{"options all required", func(f *filter.FilterState) { f.Search.Options = []filter.Option{filter.OptionRent, filter.OptionBarter} }, []string{"p4"}},
		{"text case folded", func(f *filter.FilterState) { f.Search.Text = "  SEASIDE " }, []string{"p4"}},
		{"text in description", func(f *filter.FilterState) { f.Search.Text = "timber" }, []string{"p6"}},
		{"no match", func(f *filter.FilterState) { f.Search.Text = "castle" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseState()
			tt.patch(&f)
			got := Sample().Search(f)
			assert.Equal(t, len(tt.want), got.Total)
			if tt.want == nil {
				assert.Empty(t, got.Items)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSearch_SortAndPaginate(t *testing.T) {
	f := baseState()
	f.Sort = "price"
	f.Direction = filter.Asc
	f.Limit = 4
	f.Page = 2

	got := Sample().Search(f)
	require.Equal(t, 6, got.Total)
	assert.Equal(t, 2, got.Pages())
	assert.Equal(t, []string{"p2", "p4"}, ids(got))
}

func TestSearch_PageBeyondEnd(t *testing.T) {
	f := baseState()
	f.Page = 9
	got := Sample().Search(f)
	assert.Empty(t, got.Items)
	assert.Equal(t, 6, got.Total)
}

func TestAdd(t *testing.T) {
	c := New()
	c.Add(Project{ID: "x", Title: "École Loft"})

	f := baseState()
	f.Search.Text = "éCOLE"
	assert.Equal(t, []string{"x"}, ids(c.Search(f)))
}
