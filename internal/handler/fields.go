package handler

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/service"
)

// fieldSet is the allow-list of top-level keys a resource may be
// trimmed to with ?fields= or ?omit=.
type fieldSet map[string]bool

func newFieldSet(keys ...string) fieldSet {
	s := make(fieldSet, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

var (
	venueFields = newFieldSet("id", "name", "category", "venue_type", "company_id", "parent_id",
		"pricing_id", "depth", "created_at", "updated_at", "price", "total_lot", "available_lot",
		"location", "company_name", "children")
	reservationFields = newFieldSet("id", "venue_id", "user_id", "book_from", "book_to", "license",
		"phone_number", "status", "amount", "overdue_amount", "total_amount", "total_amount_paid",
		"balance", "payment_status", "created_at", "updated_at", "venue", "payments")
)

// shaper trims payloads according to the request's field lists.
type shaper struct {
	keep fieldSet
	drop fieldSet
}

// newShaper reads ?fields= and ?omit=.  Naming a key outside allowed is
// an input error.
func newShaper(c echo.Context, allowed fieldSet) (*shaper, error) {
	keep, err := parseFieldList(c.QueryParam("fields"), allowed)
	if err != nil {
		return nil, err
	}
	drop, err := parseFieldList(c.QueryParam("omit"), allowed)
	if err != nil {
		return nil, err
	}
	return &shaper{keep: keep, drop: drop}, nil
}

func parseFieldList(raw string, allowed fieldSet) (fieldSet, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := fieldSet{}
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !allowed[f] {
			return nil, fmt.Errorf("%w: unknown field %q", service.ErrInvalidInput, f)
		}
		out[f] = true
	}
	return out, nil
}

func (s *shaper) apply(m echo.Map) echo.Map {
	if s.keep == nil && s.drop == nil {
		return m
	}
	out := make(echo.Map, len(m))
	for k, v := range m {
		if s.keep != nil && !s.keep[k] {
			continue
		}
		if s.drop[k] {
			continue
		}
		out[k] = v
	}
	return out
}

func (s *shaper) applyAll(ms []echo.Map) []echo.Map {
	for i := range ms {
		ms[i] = s.apply(ms[i])
	}
	return ms
}
