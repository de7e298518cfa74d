package booking

import (
	"sort"
	"time"
)

// Record is a booking as returned by the backend's user-bookings endpoint.
type Record struct {
	ID               string  `json:"id"`
	BookingReference string  `json:"booking_reference"`
	CreatedAt        string  `json:"created_at"`
	IsMock           bool    `json:"is_mock"`
	Status           string  `json:"status"`
	RawBookingData   RawData `json:"raw_booking_data"`
}

// RawData wraps the airline order payload.
type RawData struct {
	Data *Order `json:"data,omitempty"`
}

// Order is the subset of the airline order the ticket view reads.
type Order struct {
	Slices        []Slice     `json:"slices,omitempty"`
	Passengers    []Passenger `json:"passengers,omitempty"`
	TotalAmount   string      `json:"total_amount,omitempty"`
	TotalCurrency string      `json:"total_currency,omitempty"`
}

// Slice is one direction of travel.
type Slice struct {
	Segments      []Segment `json:"segments,omitempty"`
	FareBrandName string    `json:"fare_brand_name,omitempty"`
	Duration      string    `json:"duration,omitempty"`
}

// Segment is a single flight.
type Segment struct {
	MarketingCarrier             *Carrier `json:"marketing_carrier,omitempty"`
	MarketingCarrierFlightNumber string   `json:"marketing_carrier_flight_number,omitempty"`
	Origin                       *Place   `json:"origin,omitempty"`
	Destination                  *Place   `json:"destination,omitempty"`
	DepartingAt                  string   `json:"departing_at,omitempty"`
	ArrivingAt                   string   `json:"arriving_at,omitempty"`
}

// Carrier names an airline.
type Carrier struct {
	Name string `json:"name,omitempty"`
}

// Place is an airport.
type Place struct {
	CityName string `json:"city_name,omitempty"`
	Name     string `json:"name,omitempty"`
	IATACode string `json:"iata_code,omitempty"`
}

// Passenger is a traveller on the order.
type Passenger struct {
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Select keeps live bookings when live is true and mock bookings otherwise,
// newest first.
func Select(records []Record, live bool) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.IsMock != live {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	return out
}

// Count returns how many records are demo (mock) and how many are live.
func Count(records []Record) (demo, live int) {
	for _, r := range records {
		if r.IsMock {
			demo++
		} else {
			live++
		}
	}
	return demo, live
}

// createdAt parses the record timestamp; unparseable values sort last.
func createdAt(r Record) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}
