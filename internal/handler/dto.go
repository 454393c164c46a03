package handler // handler package contains the JSON shapes shared by all handlers

import (
	"time" // time formats timestamps as RFC 3339

	"github.com/labstack/echo/v4" // echo.Map is the response body type

	"github.com/hitman711/parkinglot/internal/model"   // model defines the stored rows
	"github.com/hitman711/parkinglot/internal/service" // service defines the derived views
)

// Money is always rendered as a string with two decimals so clients
// never see float rounding.

func companyJSON(co model.Company, total, available int) echo.Map {
	return echo.Map{
		"id":            co.ID,
		"user_id":       co.UserID,
		"name":          co.Name,
		"total_lot":     total,     // lots anywhere in the company's trees
		"available_lot": available, // of those, free at the requested instant
		"created_at":    co.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":    co.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func pricingJSON(p model.PricingRule) echo.Map {
	return echo.Map{
		"id":              p.ID,
		"company_id":      p.CompanyID,
		"name":            p.Name,
		"duration":        p.Duration,
		"duration_unit":   p.DurationUnit,
		"pre_paid_amount": p.PrePaidAmount.StringFixed(2),
		"amount":          p.Amount.StringFixed(2),
		"overdue_amount":  p.OverdueAmount.StringFixed(2),
	}
}

func venueJSON(v model.Venue) echo.Map {
	return echo.Map{
		"id":         v.ID,
		"name":       v.Name,
		"category":   v.Category,
		"venue_type": v.VenueType,
		"company_id": v.CompanyID,
		"parent_id":  v.ParentID,
		"pricing_id": v.PricingID,
		"depth":      v.Depth, // 0 for a building at the root
		"created_at": v.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// venueViewJSON adds the derived read fields to a venue.
func venueViewJSON(view service.VenueView) echo.Map {
	m := venueJSON(view.Venue)
	m["price"] = nil // explicit null for venues without a rule
	if view.Pricing != nil {
		m["price"] = pricingJSON(*view.Pricing)
	}
	m["total_lot"] = view.TotalLots
	m["available_lot"] = view.AvailableLots
	m["location"] = view.Location // e.g. "2 floor, Acme Parking"
	m["company_name"] = view.CompanyName
	return m
}

// treeJSON renders a node and, recursively, its children in lft order.
func treeJSON(n *service.TreeNode) echo.Map {
	m := venueJSON(n.Venue)
	m["total_lot"] = n.TotalLots
	m["available_lot"] = n.AvailableLots
	children := make([]echo.Map, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, treeJSON(c))
	}
	m["children"] = children
	return m
}

func reservationJSON(r model.Reservation) echo.Map {
	return echo.Map{
		"id":                r.ID,
		"venue_id":          r.VenueID,
		"user_id":           r.UserID,
		"book_from":         r.BookFrom.UTC().Format(time.RFC3339),
		"book_to":           r.BookTo.UTC().Format(time.RFC3339),
		"license":           r.License,
		"phone_number":      r.PhoneNumber,
		"status":            r.Status,
		"amount":            r.Amount.StringFixed(2),
		"overdue_amount":    r.OverdueAmount.StringFixed(2),
		"total_amount":      r.TotalAmount.StringFixed(2),
		"total_amount_paid": r.TotalAmountPaid.StringFixed(2),
		"balance":           r.Balance().StringFixed(2), // total_amount - total_amount_paid
		"payment_status":    r.PaymentStatus,
		"created_at":        r.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":        r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// bookingJSON is a reservation with its lot and payment ledger embedded.
func bookingJSON(b service.Booking) echo.Map {
	m := reservationJSON(b.Reservation)
	m["venue"] = venueJSON(b.Venue)
	m["payments"] = paymentsJSON(b.Payments)
	return m
}

func paymentJSON(p model.Payment) echo.Map {
	return echo.Map{
		"id":             p.ID,
		"reservation_id": p.ReservationID,
		"payment_type":   p.PaymentType,
		"amount":         p.Amount.StringFixed(2),
		"created_at":     p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func paymentsJSON(ps []model.Payment) []echo.Map {
	out := make([]echo.Map, 0, len(ps)) // [] rather than null
	for _, p := range ps {
		out = append(out, paymentJSON(p))
	}
	return out
}
