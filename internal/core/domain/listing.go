package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// Listing - one marketplace item. The filter engine only reads it.
type Listing struct {
	ID        uuid.UUID
	Category  string
	Title     string
	VideoURL  string
	ThumbURL  string
	CreatedAt time.Time

	// Attributes holds the category-specific facets (make, price, year, location...).
	// Values are strings or numbers.
	Attributes map[string]any
}

// Attr returns the raw value of a facet. "title" and "category" fall back to
// the built-in fields when the attribute map does not carry them.
func (l Listing) Attr(key string) (any, bool) {
	if v, ok := l.Attributes[key]; ok && v != nil {
		return v, true
	}
	switch key {
	case "title":
		if l.Title != "" {
			return l.Title, true
		}
	case "category":
		if l.Category != "" {
			return l.Category, true
		}
	}
	return nil, false
}

// StringAttr returns the value of key when it is a string.
func (l Listing) StringAttr(key string) (string, bool) {
	v, ok := l.Attr(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NumberAttr returns the value of key when it is numeric.
// Strings are not coerced: a listing with price "1000" has no numeric price.
// NaN is treated as missing.
func (l Listing) NumberAttr(key string) (float64, bool) {
	v, ok := l.Attr(key)
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
