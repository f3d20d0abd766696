package domain

import (
	"context"
	"time"
)

// ReservationStore is the merged view over the live and historical sources.
type ReservationStore interface {
	// Read paths
	LoadAll(ctx context.Context) ([]Reservation, error)
	FindByID(ctx context.Context, id string) (Reservation, error)
	ListFiltered(ctx context.Context, q ListQuery) ([]Reservation, error)

	// Write paths
	Append(ctx context.Context, r Reservation) error
	UpdateField(ctx context.Context, id, field string, value string) (bool, error)
}

// Classifier is the trained cancellation model, consumed as an opaque
// capability: ordered features in, positive-class probability out.
type Classifier interface {
	PredictProba(ctx context.Context, features []Feature) (float64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ListQuery is a conjunction of predicates over the merged view plus one
// sort key and a row cap.
type ListQuery struct {
	MinProb       *float64 // inclusive, fraction in [0,1]
	MaxProb       *float64
	Status        *string
	Hotel         *string
	ArrivedAfter  *time.Time
	ArrivedBefore *time.Time
	MinValue      *float64
	MaxValue      *float64
	Sort          SortKey
	Limit         int
}

type SortKey string

const (
	SortRiskDesc    SortKey = "-prob"
	SortArrivalAsc  SortKey = "llegada"
	SortValueDesc   SortKey = "-valor"
	SortCreatedDesc SortKey = "-creada"
)
