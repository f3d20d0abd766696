package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reserva_score/internal/app"
	"reserva_score/internal/domain"
)

type Handlers struct {
	Scoring *app.ScoringService
	Res     *app.ReservationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/score", h.score)
	s.mux.Get("/v1/reservations", h.listReservations)
	s.mux.Get("/v1/reservations/{id}", h.getReservation)
	s.mux.Post("/v1/reservations", h.createReservation)
	s.mux.Patch("/v1/reservations/{id}", h.patchReservation)
}

// bookingRequest mirrors the form the presentation layer posts. Field names
// stay aligned with the CSV headers so operators can eyeball both.
type bookingRequest struct {
	// ID accepts both shapes callers send: a plain string or the
	// sheet-style JSON number (646582709601.0).
	ID          any     `json:"id_reserva,omitempty"`
	Arrival     string  `json:"llegada"`
	BookedAt    string  `json:"fecha_reserva"`
	Nights      int     `json:"noches"`
	Guests      int     `json:"pax"`
	Adults      int     `json:"adultos"`
	Value       float64 `json:"valor_reserva"`
	RoomCode    string  `json:"nombre_habitacion"`
	ClientName  string  `json:"nombre_cliente"`
	Country     string  `json:"pais"`
	Segment     string  `json:"segmento"`
	Channel     string  `json:"canal"`
	ComplexName string  `json:"complejo"`
	Loyalty     string  `json:"fidelidad,omitempty"`
	GroupID     int64   `json:"grupo_id,omitempty"`
	Email       string  `json:"email,omitempty"`
	Agency      string  `json:"agencia,omitempty"`
	Acquisition string  `json:"origen_captacion,omitempty"`
	HotelName   string  `json:"nombre_hotel,omitempty"`
	Status      string  `json:"estado,omitempty"`
}

func (b bookingRequest) raw() (domain.RawBooking, error) {
	arrival, err := parseFlexibleTime(b.Arrival)
	if err != nil {
		return domain.RawBooking{}, errors.New("llegada: expected YYYY-MM-DD")
	}
	booked := time.Now().UTC()
	if b.BookedAt != "" {
		booked, err = parseFlexibleTime(b.BookedAt)
		if err != nil {
			return domain.RawBooking{}, errors.New("fecha_reserva: expected YYYY-MM-DD or RFC3339")
		}
	}
	return domain.RawBooking{
		Arrival:     arrival,
		BookedAt:    booked,
		Nights:      b.Nights,
		Guests:      b.Guests,
		Adults:      b.Adults,
		Value:       b.Value,
		RoomCode:    b.RoomCode,
		ClientName:  b.ClientName,
		Country:     b.Country,
		Segment:     b.Segment,
		Channel:     b.Channel,
		ComplexName: b.ComplexName,
		Loyalty:     b.Loyalty,
		GroupID:     b.GroupID,
	}, nil
}

func parseFlexibleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unparsable time")
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) score(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}
	raw, err := req.raw()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid booking", err.Error())
		return
	}
	res, err := h.Scoring.Score(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid booking", err.Error())
	case errors.Is(err, domain.ErrFeatureMismatch):
		// training/serving skew: surface loudly, nothing the caller can fix
		writeProblem(w, http.StatusInternalServerError, "Feature mismatch", err.Error())
	default:
		writeProblem(w, http.StatusBadGateway, "Classifier unavailable", err.Error())
	}
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.Res.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "reservation not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Lookup failed", err.Error())
		return
	}

	etag, body := calcETagAndBody(res)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write reservation body")
	}
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	rows, err := h.Res.List(r.Context(), q)
	degraded := errors.Is(err, domain.ErrSourceUnavailable)
	if err != nil && !degraded {
		writeProblem(w, http.StatusInternalServerError, "Listing failed", err.Error())
		return
	}
	if degraded {
		w.Header().Set("X-Source-Degraded", "historical")
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows, "count": len(rows)})
}

func parseListQuery(r *http.Request) (domain.ListQuery, error) {
	q := domain.ListQuery{Sort: domain.SortRiskDesc, Limit: 50}
	get := r.URL.Query().Get

	if v := get("sort"); v != "" {
		switch domain.SortKey(v) {
		case domain.SortRiskDesc, domain.SortArrivalAsc, domain.SortValueDesc, domain.SortCreatedDesc:
			q.Sort = domain.SortKey(v)
		default:
			return q, errors.New("sort: unknown key")
		}
	}
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			return q, errors.New("limit: must be 1..500")
		}
		q.Limit = n
	}
	for _, rng := range []struct {
		param string
		dst   **float64
	}{
		{"min_prob", &q.MinProb}, {"max_prob", &q.MaxProb},
		{"min_valor", &q.MinValue}, {"max_valor", &q.MaxValue},
	} {
		if v := get(rng.param); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return q, errors.New(rng.param + ": not a number")
			}
			*rng.dst = &f
		}
	}
	if v := get("estado"); v != "" {
		q.Status = &v
	}
	if v := get("hotel"); v != "" {
		q.Hotel = &v
	}
	if v := get("desde"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return q, errors.New("desde: expected YYYY-MM-DD")
		}
		q.ArrivedAfter = &t
	}
	if v := get("hasta"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return q, errors.New("hasta: expected YYYY-MM-DD")
		}
		q.ArrivedBefore = &t
	}
	return q, nil
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}
	raw, err := req.raw()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid booking", err.Error())
		return
	}
	opt := app.CreateOptions{
		ID:          domain.NormalizeIDValue(req.ID),
		Email:       req.Email,
		Agency:      req.Agency,
		Acquisition: req.Acquisition,
		HotelName:   req.HotelName,
		Status:      req.Status,
	}
	res, score, err := h.Res.Create(r.Context(), raw, opt)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"reservation": res, "score": score})
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid booking", err.Error())
	case errors.Is(err, domain.ErrPersistence):
		writeProblem(w, http.StatusInternalServerError, "Write failed", err.Error())
	default:
		writeProblem(w, http.StatusBadGateway, "Classifier unavailable", err.Error())
	}
}

// patchRequest accepts exactly one mutation per call.
type patchRequest struct {
	Status      *string `json:"estado,omitempty"`
	OfferText   *string `json:"oferta_retencion,omitempty"`
	OfferStatus *string `json:"estado_oferta,omitempty"`
}

func (h *Handlers) patchReservation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "malformed JSON")
		return
	}

	var (
		ok  bool
		err error
	)
	switch {
	case req.Status != nil:
		ok, err = h.Res.UpdateStatus(r.Context(), id, *req.Status)
	case req.OfferText != nil:
		ok, err = h.Res.RecordOffer(r.Context(), id, *req.OfferText)
	case req.OfferStatus != nil:
		ok, err = h.Res.UpdateOfferStatus(r.Context(), id, *req.OfferStatus)
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid body", "one of estado, oferta_retencion, estado_oferta required")
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeProblem(w, http.StatusBadRequest, "Invalid field", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Update failed", err.Error())
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true, "id": domain.NormalizeID(id)})
}
