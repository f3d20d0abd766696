package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reserva_score/internal/app"
	"reserva_score/internal/domain"
	"reserva_score/internal/features"
)

type fakeClassifier struct {
	proba float64
	err   error
}

func (f *fakeClassifier) PredictProba(context.Context, []domain.Feature) (float64, error) {
	return f.proba, f.err
}

type fakeStore struct {
	rows    []domain.Reservation
	updates [][3]string
}

func (f *fakeStore) LoadAll(context.Context) ([]domain.Reservation, error) { return f.rows, nil }

func (f *fakeStore) FindByID(_ context.Context, id string) (domain.Reservation, error) {
	want := domain.NormalizeID(id)
	for _, r := range f.rows {
		if r.ID == want {
			return r, nil
		}
	}
	return domain.Reservation{}, domain.ErrNotFound
}

func (f *fakeStore) ListFiltered(_ context.Context, q domain.ListQuery) ([]domain.Reservation, error) {
	out := f.rows
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) Append(_ context.Context, r domain.Reservation) error {
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeStore) UpdateField(_ context.Context, id, field, value string) (bool, error) {
	if field == "VALOR_RESERVA" {
		return false, domain.ErrInvalidInput
	}
	f.updates = append(f.updates, [3]string{domain.NormalizeID(id), field, value})
	for _, r := range f.rows {
		if r.ID == domain.NormalizeID(id) {
			return true, nil
		}
	}
	return false, nil
}

func newTestAPI(t *testing.T, clf domain.Classifier, st *fakeStore) http.Handler {
	t.Helper()
	scoring := app.NewScoringService(clf, features.Config{TopRooms: features.DefaultTopRooms()}, nil)
	res := app.NewReservationService(st, scoring, nil, 0)
	srv := New()
	srv.MountHandlers(&Handlers{Scoring: scoring, Res: res})
	return srv.Mux()
}

const validBooking = `{
	"llegada": "2026-06-01",
	"fecha_reserva": "2025-12-01T09:00:00Z",
	"noches": 15,
	"pax": 2,
	"adultos": 2,
	"valor_reserva": 11088.0,
	"nombre_habitacion": "CMU JUNIOR SUITE",
	"pais": "ES",
	"segmento": "Directo",
	"canal": "Web",
	"complejo": "Grand Palladium Costa Mujeres"
}`

func do(api http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

func TestScoreEndpoint_OK(t *testing.T) {
	api := newTestAPI(t, &fakeClassifier{proba: 0.71}, &fakeStore{})

	rec := do(api, http.MethodPost, "/v1/score", validBooking)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var got domain.ScoreResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Probability != 0.71 || got.Tier != domain.TierHigh {
		t.Fatalf("got %+v, want 0.71 High", got)
	}
}

func TestScoreEndpoint_BadInput(t *testing.T) {
	api := newTestAPI(t, &fakeClassifier{proba: 0.5}, &fakeStore{})

	cases := map[string]string{
		"malformed json": `{`,
		"bad arrival":    `{"llegada":"soon","noches":1,"pax":1,"valor_reserva":1}`,
		"zero nights":    strings.Replace(validBooking, `"noches": 15`, `"noches": 0`, 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(api, http.MethodPost, "/v1/score", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("content type = %q", ct)
			}
		})
	}
}

func TestScoreEndpoint_ClassifierDown(t *testing.T) {
	api := newTestAPI(t, &fakeClassifier{err: errors.New("connection refused")}, &fakeStore{})

	rec := do(api, http.MethodPost, "/v1/score", validBooking)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestGetReservation_NotFound(t *testing.T) {
	api := newTestAPI(t, &fakeClassifier{}, &fakeStore{})

	rec := do(api, http.MethodGet, "/v1/reservations/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var p problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Status != 404 {
		t.Fatalf("problem status = %d", p.Status)
	}
}

func TestGetReservation_ETagRoundTrip(t *testing.T) {
	arr := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{rows: []domain.Reservation{{ID: "42", Arrival: &arr, Value: 900}}}
	api := newTestAPI(t, &fakeClassifier{}, st)

	rec := do(api, http.MethodGet, "/v1/reservations/42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("etag = %q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/42", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("revalidation status = %d, want 304", rec.Code)
	}
}

func TestListReservations_QueryValidation(t *testing.T) {
	api := newTestAPI(t, &fakeClassifier{}, &fakeStore{})

	for _, target := range []string{
		"/v1/reservations?limit=0",
		"/v1/reservations?limit=9999",
		"/v1/reservations?min_prob=high",
		"/v1/reservations?sort=weird",
		"/v1/reservations?desde=tomorrow",
	} {
		rec := do(api, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestCreateReservation_Created(t *testing.T) {
	st := &fakeStore{}
	api := newTestAPI(t, &fakeClassifier{proba: 0.3}, st)

	rec := do(api, http.MethodPost, "/v1/reservations", validBooking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(st.rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(st.rows))
	}
	if st.rows[0].CancelProb != 0.3 {
		t.Fatalf("stored prob = %v, want 0.3", st.rows[0].CancelProb)
	}
}

func TestPatchReservation(t *testing.T) {
	arr := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{rows: []domain.Reservation{{ID: "7", Arrival: &arr}}}
	api := newTestAPI(t, &fakeClassifier{}, st)

	rec := do(api, http.MethodPatch, "/v1/reservations/7", `{"estado":"Cancelada"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(st.updates) != 1 || st.updates[0] != [3]string{"7", "ESTADO", "Cancelada"} {
		t.Fatalf("updates = %v", st.updates)
	}

	rec = do(api, http.MethodPatch, "/v1/reservations/7", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d, want 400", rec.Code)
	}

	rec = do(api, http.MethodPatch, "/v1/reservations/nope", `{"estado":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("miss status = %d, want 404", rec.Code)
	}
}

func TestCreateReservation_IDShapes(t *testing.T) {
	cases := []struct {
		name string
		id   string // injected verbatim into the JSON body
		want string
	}{
		{"sheet numeric", `646582709601.0`, "646582709601"},
		{"plain string", `" RES-9 "`, "RES-9"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := &fakeStore{}
			api := newTestAPI(t, &fakeClassifier{proba: 0.2}, st)

			body := strings.Replace(validBooking, "{", `{"id_reserva": `+c.id+",", 1)
			rec := do(api, http.MethodPost, "/v1/reservations", body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if len(st.rows) != 1 || st.rows[0].ID != c.want {
				t.Fatalf("stored id = %q, want %q", st.rows[0].ID, c.want)
			}
		})
	}
}
