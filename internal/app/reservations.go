package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reserva_score/internal/domain"
)

// ReservationService serves reads over the merged view (cache-aside) and
// funnels every write through the store plus cache invalidation.
type ReservationService struct {
	store    domain.ReservationStore
	scoring  *ScoringService
	cache    domain.Cache
	cacheTTL time.Duration

	// listGen stamps every listing cache key. Each write bumps it, so a
	// page cached before the write can never be served after it; orphaned
	// generations age out via TTL.
	listGen atomic.Uint64
}

func NewReservationService(st domain.ReservationStore, sc *ScoringService, c domain.Cache, ttl time.Duration) *ReservationService {
	return &ReservationService{store: st, scoring: sc, cache: c, cacheTTL: ttl}
}

func (s *ReservationService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	key := "reserva:" + domain.NormalizeID(id)
	var r domain.Reservation
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &r); ok {
			return r, nil
		}
	}
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, r, int(s.cacheTTL.Seconds()))
	}
	return r, nil
}

func (s *ReservationService) List(ctx context.Context, q domain.ListQuery) ([]domain.Reservation, error) {
	key := s.listKey(q)
	if s.cache != nil {
		var cached []domain.Reservation
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}
	rows, err := s.store.ListFiltered(ctx, q)
	if err != nil {
		// degraded results are still served, just never cached
		return rows, err
	}
	if s.cache != nil {
		// copy to avoid aliasing the store's snapshot slice
		out := make([]domain.Reservation, len(rows))
		copy(out, rows)
		if b, _ := json.Marshal(out); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
		}
	}
	return rows, nil
}

// CreateOptions carries the live-write fields that are not scoring inputs.
type CreateOptions struct {
	ID          string // generated when empty
	Email       string
	Agency      string
	Acquisition string
	HotelName   string
	Status      string
}

// Create scores the booking and persists it in one step so the stored
// PROBABILIDAD_CANCELACION always matches what a re-score would produce.
func (s *ReservationService) Create(ctx context.Context, raw domain.RawBooking, opt CreateOptions) (domain.Reservation, domain.ScoreResult, error) {
	result, err := s.scoring.Score(ctx, raw)
	if err != nil {
		return domain.Reservation{}, domain.ScoreResult{}, err
	}

	id := opt.ID
	if id == "" {
		id = uuid.NewString()
	}
	id = domain.NormalizeID(id)

	status := opt.Status
	if status == "" {
		status = "Confirmada"
	}
	now := time.Now().UTC()
	departure := raw.Arrival.AddDate(0, 0, raw.Nights)

	r := domain.Reservation{
		ID:          id,
		Arrival:     &raw.Arrival,
		Departure:   &departure,
		Nights:      raw.Nights,
		Guests:      raw.Guests,
		Value:       raw.Value,
		RoomCode:    raw.RoomCode,
		Channel:     optional(raw.Channel),
		Market:      optional(raw.Country),
		Agency:      optional(opt.Agency),
		HotelName:   optional(opt.HotelName),
		ComplexName: optional(raw.ComplexName),
		CancelProb:  result.Probability,
		SourceTag:   "live",
		ClientName:  optional(raw.ClientName),
		Email:       optional(opt.Email),
		Segment:     optional(raw.Segment),
		Loyalty:     optional(raw.Loyalty),
		Acquisition: optional(opt.Acquisition),
		CreatedAt:   &now,
		Status:      &status,
	}
	if err := s.store.Append(ctx, r); err != nil {
		return domain.Reservation{}, domain.ScoreResult{}, err
	}
	s.invalidate(ctx, id)
	return r, result, nil
}

// UpdateStatus flips a reservation's status in place.
func (s *ReservationService) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	ok, err := s.store.UpdateField(ctx, id, "ESTADO", status)
	if ok {
		s.invalidate(ctx, id)
	}
	return ok, err
}

// RecordOffer attaches a retention offer to a reservation: text, stamp and
// initial offer status, written as three single-field updates.
func (s *ReservationService) RecordOffer(ctx context.Context, id, text string) (bool, error) {
	ok, err := s.store.UpdateField(ctx, id, "OFERTA_RETENCION", text)
	if err != nil || !ok {
		return ok, err
	}
	stamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	if _, err := s.store.UpdateField(ctx, id, "FECHA_OFERTA", stamp); err != nil {
		return true, err
	}
	if _, err := s.store.UpdateField(ctx, id, "ESTADO_OFERTA", "Enviada"); err != nil {
		return true, err
	}
	s.invalidate(ctx, id)
	return true, nil
}

// UpdateOfferStatus moves an offer through its lifecycle (Enviada,
// Aceptada, Rechazada).
func (s *ReservationService) UpdateOfferStatus(ctx context.Context, id, status string) (bool, error) {
	ok, err := s.store.UpdateField(ctx, id, "ESTADO_OFERTA", status)
	if ok {
		s.invalidate(ctx, id)
	}
	return ok, err
}

func (s *ReservationService) invalidate(ctx context.Context, id string) {
	// The list keyspace is query-shaped and unbounded; instead of chasing
	// individual keys, retire the whole generation.
	s.listGen.Add(1)
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, "reserva:"+id)
}

// listKey fingerprints a query into a cache key stamped with the current
// listing generation.
func (s *ReservationService) listKey(q domain.ListQuery) string {
	b, _ := json.Marshal(q)
	sum := sha1.Sum(b)
	return fmt.Sprintf("reservas:g%d:%s", s.listGen.Load(), hex.EncodeToString(sum[:]))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
