package domain

import "time"

// Reservation is one row of the merged view across the live and historical
// sources. Core booking fields are always present; the rich fields only
// exist for live-source rows and stay nil when the historical baseline did
// not carry the column.
type Reservation struct {
	ID          string // normalized, unique within the merged view
	Arrival     *time.Time
	Departure   *time.Time
	Nights      int
	Guests      int
	Value       float64
	RoomCode    string
	Channel     *string
	Market      *string
	Agency      *string
	HotelName   *string
	ComplexName *string
	CancelProb  float64 // always a fraction in [0,1]
	SourceTag   string  // e.g. "live", "baseline"

	// Rich fields (live source, optional).
	ClientName  *string
	Email       *string
	Segment     *string
	Loyalty     *string
	Acquisition *string
	CreatedAt   *time.Time
	Status      *string

	// Retention-offer annotations (the only mutable fields besides Status).
	OfferText   *string
	OfferDate   *time.Time
	OfferStatus *string
}

// RawBooking carries everything a caller supplies before scoring.
// Transient; built per scoring call, never persisted as-is.
type RawBooking struct {
	Arrival     time.Time
	BookedAt    time.Time
	Nights      int
	Guests      int
	Adults      int
	Value       float64
	RoomCode    string
	ClientName  string
	Country     string
	Segment     string
	Channel     string
	ComplexName string
	Loyalty     string // empty means no program
	GroupID     int64  // 0 for single-reservation bookings
}

// ScoreResult is what the scoring façade hands back to callers.
type ScoreResult struct {
	ScoringID   string    `json:"scoring_id"`
	Probability float64   `json:"probability"`
	Tier        RiskTier  `json:"tier"`
	Features    int       `json:"features"`
	GeneratedAt time.Time `json:"generated_at"`
}

type RiskTier string

const (
	TierHigh   RiskTier = "High"
	TierMedium RiskTier = "Medium"
	TierLow    RiskTier = "Low"
)

// Risk thresholds are business policy, fixed and defined exactly once.
const (
	HighRiskThreshold   = 0.60
	MediumRiskThreshold = 0.35
)

// TierFor maps a cancellation probability to its risk tier.
func TierFor(p float64) RiskTier {
	switch {
	case p >= HighRiskThreshold:
		return TierHigh
	case p >= MediumRiskThreshold:
		return TierMedium
	default:
		return TierLow
	}
}
