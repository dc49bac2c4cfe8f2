package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
)

// QueryParam is the URL query key that carries an encoded FilterState.
const QueryParam = "input"

// maxUnescapePasses bounds percent-decoding of a doubly encoded query value.
const maxUnescapePasses = 2

// Prune drops fields that carry no constraint: empty lists and a price range
// equal to the default one.
func Prune(f FilterState, d Defaults) FilterState {
	out := f.Clone()
	if len(out.Search.StyleList) == 0 {
		out.Search.StyleList = nil
	}
	if len(out.Search.TypeList) == 0 {
		out.Search.TypeList = nil
	}
	if len(out.Search.Options) == 0 {
		out.Search.Options = nil
	}
	if out.Search.PricesRange != nil && *out.Search.PricesRange == d.PriceRange {
		out.Search.PricesRange = nil
	}
	return out
}

// Encode prunes f and serializes it to JSON.
func Encode(f FilterState, d Defaults) (string, error) {
	b, err := json.Marshal(Prune(f, d))
	if err != nil {
		return "", fmt.Errorf("encode filter: %w", err)
	}
	return string(b), nil
}

// Parse decodes raw, which may be percent-encoded up to twice, over a copy of
// fallback. Fields absent from raw keep the fallback's values.
func Parse(raw string, fallback FilterState) (FilterState, error) {
	s := raw
	for i := 0; i < maxUnescapePasses && !json.Valid([]byte(s)); i++ {
		dec, err := url.QueryUnescape(s)
		if err != nil || dec == s {
			break
		}
		s = dec
	}

	out := fallback.Clone()
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return fallback, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if err := Validate(out); err != nil {
		return fallback, err
	}
	return out, nil
}

// Decode is Parse that never fails: malformed input yields fallback.
func Decode(raw string, fallback FilterState) FilterState {
	if raw == "" {
		return fallback.Clone()
	}
	f, err := Parse(raw, fallback)
	if err != nil {
		slog.Warn("Ignoring malformed filter input", "event", "filter_decode_failed", "error", err)
		return fallback.Clone()
	}
	return f
}

// Query returns the URL query carrying f.
func Query(f FilterState, d Defaults) (url.Values, error) {
	enc, err := Encode(f, d)
	if err != nil {
		return nil, err
	}
	return url.Values{QueryParam: {enc}}, nil
}
