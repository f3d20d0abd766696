// Package features derives the exact feature vector the trained
// cancellation classifier expects from raw booking attributes. Every rule
// here must match the training pipeline byte for byte; a drift between the
// two silently skews served probabilities.
package features

import (
	"fmt"
	"math"
	"time"

	"reserva_score/internal/domain"
)

// Config is the training-time state the pipeline depends on: the top-room
// whitelist and nothing else. Immutable, injected, never recomputed from
// the call's own input.
type Config struct {
	TopRooms TopRooms
}

// Derive maps a raw booking to the model's feature vector. Pure, no I/O.
// Zero denominators are rejected here even though callers validate
// upstream; a division must never silently produce Inf or NaN.
func Derive(raw domain.RawBooking, cfg Config) (domain.FeatureVector, error) {
	if raw.Nights <= 0 {
		return domain.FeatureVector{}, fmt.Errorf("%w: nights must be positive, got %d", domain.ErrInvalidInput, raw.Nights)
	}
	if raw.Guests <= 0 {
		return domain.FeatureVector{}, fmt.Errorf("%w: guests must be positive, got %d", domain.ErrInvalidInput, raw.Guests)
	}
	if raw.Value < 0 {
		return domain.FeatureVector{}, fmt.Errorf("%w: value must not be negative, got %g", domain.ErrInvalidInput, raw.Value)
	}

	hourSin, hourCos := cyclical(float64(raw.BookedAt.Hour()), 24)
	monthSin, monthCos := cyclical(float64(raw.Arrival.Month()), 12)

	complexCode := ComplexCode(raw.ComplexName)
	prefix := RoomPrefix(raw.RoomCode)
	hotelComplex := HotelComplexCode(complexCode, prefix)
	topRoom := cfg.TopRooms.Category(raw.RoomCode)

	fv := domain.FeatureVector{
		Nights:        raw.Nights,
		Guests:        raw.Guests,
		Adults:        raw.Adults,
		Value:         raw.Value,
		ADR:           raw.Value / float64(raw.Nights),
		ValuePerGuest: raw.Value / float64(raw.Guests),
		LeadTimeDays:  daysBetween(raw.BookedAt, raw.Arrival),
		BookHourSin:   hourSin,
		BookHourCos:   hourCos,
		MonthSin:      monthSin,
		MonthCos:      monthCos,

		TravelerType:   travelerType(raw.Guests),
		HasLoyalty:     boolFlag(hasLoyalty(raw.Loyalty)),
		FlagshipMember: boolFlag(raw.Loyalty == FlagshipLoyaltyProgram),
		IsGroup:        boolFlag(raw.GroupID != 0),
		ComplexCode:    complexCode,
		RoomPrefix:     prefix,
		HotelComplex:   hotelComplex,
		Country:        raw.Country,
		Channel:        raw.Channel,
		Segment:        raw.Segment,
		TopRoom:        topRoom,

		ComplexRoom:          hotelComplex + " - " + raw.RoomCode,
		ComplexTopRoom:       hotelComplex + " - " + topRoom,
		ChannelSegmentClient: raw.Channel + "_" + raw.Segment + "_" + raw.ClientName,
	}
	return fv, nil
}

// cyclical encodes a periodic value onto the unit circle so hour 23 sits
// next to hour 0 instead of a period away.
func cyclical(v, period float64) (sin, cos float64) {
	angle := 2 * math.Pi * v / period
	return math.Sin(angle), math.Cos(angle)
}

// daysBetween is the whole-day difference arrival minus booking, time of
// day discarded on both sides. Negative results are legal (backdated test
// data) and deliberately not clamped.
func daysBetween(booked, arrival time.Time) int {
	b := time.Date(booked.Year(), booked.Month(), booked.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(arrival.Year(), arrival.Month(), arrival.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// travelerType buckets occupancy. Ordered checks, first match wins.
func travelerType(guests int) string {
	switch {
	case guests == 1:
		return "Single"
	case guests == 2:
		return "Couples"
	case guests >= 3:
		return "Families"
	default:
		return "Other"
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
