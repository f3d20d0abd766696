package predictor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reserva_score/internal/adapters/predictor"
	"reserva_score/internal/domain"
)

func sampleFeatures() []domain.Feature {
	return []domain.Feature{
		domain.Num("NOCHES", 15),
		domain.Num("ADR", 739.2),
		domain.Cat("TIPO_VIAJERO", "Couples"),
	}
}

func TestPredictProba_TwoClassResponse(t *testing.T) {
	var gotBody struct {
		Features []struct {
			Name  string `json:"name"`
			Value any    `json:"value"`
		} `json:"features"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"probabilities": []float64{0.53, 0.47}})
	}))
	defer ts.Close()

	cl, err := predictor.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, err := cl.PredictProba(ctx, sampleFeatures())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p != 0.47 {
		t.Fatalf("p = %v, want positive-class 0.47", p)
	}
	if len(gotBody.Features) != 3 {
		t.Fatalf("request carried %d features", len(gotBody.Features))
	}
	// numeric as JSON number, categorical as JSON string
	if _, ok := gotBody.Features[0].Value.(float64); !ok {
		t.Fatalf("NOCHES sent as %T", gotBody.Features[0].Value)
	}
	if v, ok := gotBody.Features[2].Value.(string); !ok || v != "Couples" {
		t.Fatalf("TIPO_VIAJERO sent as %T %v", gotBody.Features[2].Value, gotBody.Features[2].Value)
	}
}

func TestPredictProba_BareProbabilityResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"probability": 0.81})
	}))
	defer ts.Close()

	cl, _ := predictor.New(ts.URL, "", 100)
	p, err := cl.PredictProba(context.Background(), sampleFeatures())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != 0.81 {
		t.Fatalf("p = %v", p)
	}
}

func TestPredictProba_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"probabilities": []float64{0.9, 0.1}})
		}
	}))
	defer ts.Close()

	cl, _ := predictor.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := cl.PredictProba(ctx, sampleFeatures())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p != 0.1 {
		t.Fatalf("p = %v", p)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestPredictProba_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := predictor.New(ts.URL, "bad-key", 100)
	_, err := cl.PredictProba(context.Background(), sampleFeatures())
	if !errors.Is(err, predictor.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
