package filter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
)

// NavigationRequest asks the host router to move to Path with Query.
type NavigationRequest struct {
	Path  string
	Query url.Values
	// Shallow updates the URL without refetching page data.
	Shallow bool
	// KeepScroll preserves the scroll position.
	KeepScroll bool
}

// Navigator is the host router.
type Navigator interface {
	Navigate(ctx context.Context, req NavigationRequest) error
}

// Patch edits a FilterState in place.
type Patch func(*FilterState)

// ApplyOptions control how ApplyFilter publishes a change.
type ApplyOptions struct {
	// Navigate pushes the new state into the URL. Text search and pagination
	// navigate; other edits stay local.
	Navigate bool
}

// Synchronizer keeps one FilterState in step with the page URL. A listing
// page and its sidebar share a single Synchronizer.
type Synchronizer struct {
	path     string
	defaults Defaults
	nav      Navigator

	// applyMu serializes ApplyFilter so a navigation commits in call order.
	applyMu sync.Mutex

	mu       sync.Mutex
	state    FilterState
	watchers map[int]func(FilterState)
	nextID   int
}

// NewSynchronizer starts at defaults.State.
func NewSynchronizer(path string, defaults Defaults, nav Navigator) *Synchronizer {
	return &Synchronizer{
		path:     path,
		defaults: defaults,
		nav:      nav,
		state:    defaults.State.Clone(),
		watchers: make(map[int]func(FilterState)),
	}
}

// State returns a copy of the current state.
func (s *Synchronizer) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Watch calls fn with every new state. The returned func stops it.
func (s *Synchronizer) Watch(fn func(FilterState)) (stop func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// ApplyFilter is the single way to change the filter. The patched state is
// validated; an invalid result leaves the current state in place. With
// Navigate set, the state is committed and watchers notified only once the
// navigation succeeds.
func (s *Synchronizer) ApplyFilter(ctx context.Context, patch Patch, opts ApplyOptions) (FilterState, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	cur := s.state.Clone()
	s.mu.Unlock()

	next := cur.Clone()
	patch(&next)
	if err := Validate(next); err != nil {
		return cur, err
	}

	if opts.Navigate {
		q, err := Query(next, s.defaults)
		if err != nil {
			return cur, err
		}
		req := NavigationRequest{Path: s.path, Query: q, Shallow: true, KeepScroll: true}
		if err := s.nav.Navigate(ctx, req); err != nil {
			return cur, fmt.Errorf("navigate: %w", err)
		}
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.notify(next)
	return next, nil
}

// SyncFromURL adopts the state encoded in u, as after back/forward navigation.
// A missing or malformed input parameter resets to defaults.
func (s *Synchronizer) SyncFromURL(u *url.URL) FilterState {
	raw := ""
	if u != nil {
		raw = u.Query().Get(QueryParam)
	}
	next := Decode(raw, s.defaults.State)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	slog.Debug("Filter synced from URL", "event", "filter_url_sync", "page", next.Page)
	s.notify(next)
	return next.Clone()
}

// Href returns a shareable link to the listing filtered by f.
func (s *Synchronizer) Href(f FilterState) (string, error) {
	q, err := Query(f, s.defaults)
	if err != nil {
		return "", err
	}
	return (&url.URL{Path: s.path, RawQuery: q.Encode()}).String(), nil
}

func (s *Synchronizer) notify(f FilterState) {
	s.mu.Lock()
	fns := make([]func(FilterState), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(f.Clone())
	}
}

// SetText sets the free-text query and returns to the first page.
func SetText(text string) Patch {
	return func(f *FilterState) {
		f.Search.Text = text
		f.Page = 1
	}
}

// SetPage moves to page n.
func SetPage(n int) Patch {
	return func(f *FilterState) { f.Page = n }
}

// SetPriceRange narrows by price.
func SetPriceRange(r Range) Patch {
	return func(f *FilterState) { f.Search.PricesRange = &r }
}

// SetSort orders by field in direction dir.
func SetSort(field string, dir Direction) Patch {
	return func(f *FilterState) {
		f.Sort = field
		f.Direction = dir
	}
}

// SetMember restricts results to one member's listings.
func SetMember(memberID string) Patch {
	return func(f *FilterState) { f.Search.MemberID = memberID }
}

// ToggleStyle adds st if absent, removes it otherwise.
func ToggleStyle(st Style) Patch {
	return func(f *FilterState) { f.Search.StyleList = toggle(f.Search.StyleList, st) }
}

// ToggleType adds t if absent, removes it otherwise.
func ToggleType(t PropertyType) Patch {
	return func(f *FilterState) { f.Search.TypeList = toggle(f.Search.TypeList, t) }
}

// ToggleOption adds o if absent, removes it otherwise.
func ToggleOption(o Option) Patch {
	return func(f *FilterState) { f.Search.Options = toggle(f.Search.Options, o) }
}

func toggle[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}
