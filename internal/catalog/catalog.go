// Package catalog is an in-memory project listing that answers FilterState queries.
package catalog

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/homeplace/internal/filter"
	"golang.org/x/text/cases"
)

// Project is one marketplace listing.
type Project struct {
	ID          string              `json:"_id"`
	Title       string              `json:"projectTitle"`
	Description string              `json:"projectDesc,omitempty"`
	Style       filter.Style        `json:"projectStyle"`
	Type        filter.PropertyType `json:"projectType"`
	Price       int64               `json:"projectPrice"`
	MemberID    string              `json:"memberId"`
	Options     []filter.Option     `json:"options,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Page is one page of search results.
type Page struct {
	Items []Project `json:"list"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Pages returns the number of pages Total spans.
func (p Page) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Catalog holds projects in memory.
type Catalog struct {
	mu       sync.RWMutex
	projects []Project
}

// New returns a catalog seeded with projects.
func New(projects ...Project) *Catalog {
	return &Catalog{projects: slices.Clone(projects)}
}

// Add inserts a project.
func (c *Catalog) Add(p Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects = append(c.projects, p)
}

// Search returns the page of projects matching every predicate in f.
func (c *Catalog) Search(f filter.FilterState) Page {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Caser is stateful and not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Search.Text))

	var matched []Project
	for _, p := range c.projects {
		if matches(p, f.Search, needle, fold) {
			matched = append(matched, p)
		}
	}

	sortProjects(matched, f.Sort, f.Direction)

	limit := max(f.Limit, 1)
	page := max(f.Page, 1)
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	return Page{
		Items: slices.Clone(matched[start:end]),
		Total: len(matched),
		Page:  page,
		Limit: limit,
	}
}

func matches(p Project, s filter.Search, needle string, fold cases.Caser) bool {
	if len(s.StyleList) > 0 && !slices.Contains(s.StyleList, p.Style) {
		return false
	}
	if len(s.TypeList) > 0 && !slices.Contains(s.TypeList, p.Type) {
		return false
	}
	if r := s.PricesRange; r != nil && (p.Price < r.Start || p.Price > r.End) {
		return false
	}
	if s.MemberID != "" && p.MemberID != s.MemberID {
		return false
	}
	for _, o := range s.Options {
		if !slices.Contains(p.Options, o) {
			return false
		}
	}
	if needle != "" {
		hay := fold.String(p.Title + " " + p.Description)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func sortProjects(ps []Project, field string, dir filter.Direction) {
	compare := func(a, b Project) int {
		switch field {
		case "price":
			return cmp.Compare(a.Price, b.Price)
		case "title":
			return strings.Compare(a.Title, b.Title)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	slices.SortStableFunc(ps, func(a, b Project) int {
		if dir == filter.Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}
