package csvstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"reserva_score/internal/domain"
)

// ListFiltered applies a conjunction of predicates over the merged view,
// sorts by one of the enumerated keys, and truncates to the limit. A
// degraded historical source filters over whatever loaded, and the caller
// still sees domain.ErrSourceUnavailable.
func (s *Store) ListFiltered(ctx context.Context, q domain.ListQuery) ([]domain.Reservation, error) {
	rows, err := s.LoadAll(ctx)
	if err != nil && !errors.Is(err, domain.ErrSourceUnavailable) {
		return nil, err
	}
	degraded := err

	out := make([]domain.Reservation, 0, len(rows))
	for _, r := range rows {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	sortRows(out, q.Sort)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, degraded
}

func matches(r domain.Reservation, q domain.ListQuery) bool {
	if q.MinProb != nil && r.CancelProb < *q.MinProb {
		return false
	}
	if q.MaxProb != nil && r.CancelProb > *q.MaxProb {
		return false
	}
	if q.Status != nil && !strings.EqualFold(derefStr(r.Status), *q.Status) {
		return false
	}
	if q.Hotel != nil && !strings.EqualFold(derefStr(r.HotelName), *q.Hotel) {
		return false
	}
	if q.ArrivedAfter != nil && (r.Arrival == nil || r.Arrival.Before(*q.ArrivedAfter)) {
		return false
	}
	if q.ArrivedBefore != nil && (r.Arrival == nil || r.Arrival.After(*q.ArrivedBefore)) {
		return false
	}
	if q.MinValue != nil && r.Value < *q.MinValue {
		return false
	}
	if q.MaxValue != nil && r.Value > *q.MaxValue {
		return false
	}
	return true
}

func sortRows(rows []domain.Reservation, key domain.SortKey) {
	switch key {
	case domain.SortArrivalAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			return timeOrZero(rows[i].Arrival).Before(timeOrZero(rows[j].Arrival))
		})
	case domain.SortValueDesc:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	case domain.SortCreatedDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			return timeOrZero(rows[i].CreatedAt).After(timeOrZero(rows[j].CreatedAt))
		})
	case domain.SortRiskDesc:
		fallthrough
	default:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CancelProb > rows[j].CancelProb })
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
