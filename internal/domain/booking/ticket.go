package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flyte-gateway/internal/domain/user"
)

// Ticket directions
const (
	Departure = "departure"
	Return    = "return"
)

const noBaggage = "No bags allowed"

// Ticket is the per-direction view of a booking shown on the orders page.
type Ticket struct {
	TicketNumber     string        `json:"ticketNumber"`
	Type             string        `json:"type"`
	BookingReference string        `json:"bookingReference"`
	Passenger        PassengerInfo `json:"passenger"`
	Airline          string        `json:"airline"`
	FlightNumber     string        `json:"flightNumber"`
	From             Airport       `json:"from"`
	To               Airport       `json:"to"`
	Date             string        `json:"date"`
	Time             string        `json:"time"`
	Duration         string        `json:"duration"`
	Cabin            string        `json:"cabin"`
	Baggage          string        `json:"baggage"`
	TotalPaid        string        `json:"totalPaid,omitempty"`
	Currency         string        `json:"currency,omitempty"`
	Status           string        `json:"status"`
	BookedDate       string        `json:"bookedDate"`
	IsMock           bool          `json:"isMock"`
}

// PassengerInfo is the traveller printed on a ticket.
type PassengerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Title     string `json:"title"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Airport is one end of a ticket.
type Airport struct {
	City    string `json:"city"`
	Airport string `json:"airport"`
	Code    string `json:"code"`
}

// Tickets expands a booking into a departure ticket (first slice) and, for
// round trips, a return ticket (second slice). Missing passenger details fall
// back to the account profile, then to placeholders.
func Tickets(r Record, profile *user.Profile) []Ticket {
	order := r.RawBookingData.Data
	if order == nil {
		return nil
	}

	passenger := passengerInfo(order, profile)
	tickets := make([]Ticket, 0, 2)

	if t, ok := ticketFor(r, order, 0, Departure, passenger); ok {
		t.TotalPaid = or(order.TotalAmount, "0")
		t.Currency = or(order.TotalCurrency, "USD")
		tickets = append(tickets, t)
	}
	if t, ok := ticketFor(r, order, 1, Return, passenger); ok {
		tickets = append(tickets, t)
	}
	return tickets
}

func ticketFor(r Record, order *Order, idx int, kind string, passenger PassengerInfo) (Ticket, bool) {
	if idx >= len(order.Slices) || len(order.Slices[idx].Segments) == 0 {
		return Ticket{}, false
	}
	slice := order.Slices[idx]
	seg := slice.Segments[0]

	suffix := "DEP"
	if kind == Return {
		suffix = "RET"
	}

	airline := "Unknown Airline"
	if seg.MarketingCarrier != nil && seg.MarketingCarrier.Name != "" {
		airline = seg.MarketingCarrier.Name
	}

	return Ticket{
		TicketNumber:     fmt.Sprintf("%s-%s", r.BookingReference, suffix),
		Type:             kind,
		BookingReference: r.BookingReference,
		Passenger:        passenger,
		Airline:          airline,
		FlightNumber:     or(seg.MarketingCarrierFlightNumber, "N/A"),
		From:             airport(seg.Origin),
		To:               airport(seg.Destination),
		Date:             or(seg.DepartingAt, "Unknown"),
		Time:             or(seg.DepartingAt, "Unknown"),
		Duration:         FormatDuration(slice.Duration),
		Cabin:            or(slice.FareBrandName, "Economy"),
		Baggage:          noBaggage,
		Status:           r.Status,
		BookedDate:       r.CreatedAt,
		IsMock:           r.IsMock,
	}, true
}

func passengerInfo(order *Order, profile *user.Profile) PassengerInfo {
	var p Passenger
	if len(order.Passengers) > 0 {
		p = order.Passengers[0]
	}
	var fb user.Profile
	if profile != nil {
		fb = *profile
	}

	return PassengerInfo{
		FirstName: or(p.GivenName, fb.FirstName, "Unknown"),
		LastName:  or(p.FamilyName, fb.LastName, "User"),
		Title:     or(p.Title, fb.Title, "Mr"),
		Email:     or(p.Email, fb.Email, "unknown@email.com"),
		Phone:     or(p.PhoneNumber, fb.Phone, "N/A"),
	}
}

func airport(p *Place) Airport {
	if p == nil {
		p = &Place{}
	}
	return Airport{
		City:    or(p.CityName, "Unknown"),
		Airport: or(p.Name, "Unknown Airport"),
		Code:    or(p.IATACode, "N/A"),
	}
}

// or returns the first non-empty value.
func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?`)

// FormatDuration renders an ISO-8601 flight duration such as "PT5H56M" as "5h 56m".
func FormatDuration(d string) string {
	if d == "" {
		return "Unknown"
	}
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return d
	}

	hours, _ := strconv.Atoi(or(m[1], "0"))
	minutes, _ := strconv.Atoi(or(m[2], "0"))

	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
