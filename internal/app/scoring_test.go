package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reserva_score/internal/app"
	"reserva_score/internal/domain"
	"reserva_score/internal/features"
)

// ---- fakes ----

type fakeClassifier struct {
	proba float64
	err   error
	got   []domain.Feature
}

func (f *fakeClassifier) PredictProba(ctx context.Context, feats []domain.Feature) (float64, error) {
	f.got = feats
	return f.proba, f.err
}

func refBooking() domain.RawBooking {
	return domain.RawBooking{
		Arrival:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		BookedAt:    time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		Nights:      15,
		Guests:      2,
		Adults:      2,
		Value:       11088.0,
		RoomCode:    "CMU JUNIOR SUITE GV",
		ClientName:  "HOTELBEDS",
		Country:     "ESPAÑA",
		Segment:     "OTA",
		Channel:     "WEB",
		ComplexName: "Costa Mujeres",
	}
}

func scoringCfg() features.Config { return features.Config{TopRooms: features.DefaultTopRooms()} }

// ---- tests ----

func TestScore_ProjectsTrainedOrder(t *testing.T) {
	cl := &fakeClassifier{proba: 0.42}
	svc := app.NewScoringService(cl, scoringCfg(), nil)

	res, err := svc.Score(context.Background(), refBooking())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(cl.got) != len(domain.TrainedFeatureNames) {
		t.Fatalf("classifier saw %d features, want %d", len(cl.got), len(domain.TrainedFeatureNames))
	}
	for i, f := range cl.got {
		if f.Name != domain.TrainedFeatureNames[i] {
			t.Fatalf("feature %d = %q, want %q", i, f.Name, domain.TrainedFeatureNames[i])
		}
	}
	if res.Probability != 0.42 || res.Tier != domain.TierMedium {
		t.Fatalf("result = %+v, want 0.42/Medium", res)
	}
	if res.ScoringID == "" {
		t.Fatalf("missing scoring id")
	}
	if res.Features != len(domain.TrainedFeatureNames) {
		t.Fatalf("Features = %d", res.Features)
	}
}

func TestScore_TierBoundaries(t *testing.T) {
	cases := map[float64]domain.RiskTier{
		0.10: domain.TierLow,
		0.35: domain.TierMedium,
		0.60: domain.TierHigh,
	}
	for p, want := range cases {
		svc := app.NewScoringService(&fakeClassifier{proba: p}, scoringCfg(), nil)
		res, err := svc.Score(context.Background(), refBooking())
		if err != nil {
			t.Fatalf("p=%v: %v", p, err)
		}
		if res.Tier != want {
			t.Fatalf("p=%v: tier = %v, want %v", p, res.Tier, want)
		}
	}
}

func TestScore_PercentProbabilityNormalized(t *testing.T) {
	svc := app.NewScoringService(&fakeClassifier{proba: 72}, scoringCfg(), nil)
	res, err := svc.Score(context.Background(), refBooking())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Probability != 0.72 || res.Tier != domain.TierHigh {
		t.Fatalf("result = %+v, want 0.72/High", res)
	}
}

func TestScore_InvalidInputRejectedBeforeClassifier(t *testing.T) {
	cl := &fakeClassifier{proba: 0.5}
	svc := app.NewScoringService(cl, scoringCfg(), nil)

	raw := refBooking()
	raw.Nights = 0
	_, err := svc.Score(context.Background(), raw)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if cl.got != nil {
		t.Fatalf("classifier must not be called for invalid input")
	}
}

func TestScore_FeatureMismatchIsLoud(t *testing.T) {
	svc := app.NewScoringService(&fakeClassifier{}, scoringCfg(), []string{"NOCHES", "RETIRED_FEATURE"})
	_, err := svc.Score(context.Background(), refBooking())
	if !errors.Is(err, domain.ErrFeatureMismatch) {
		t.Fatalf("err = %v, want ErrFeatureMismatch", err)
	}
}

func TestScore_ClassifierErrorPropagates(t *testing.T) {
	boom := errors.New("model server down")
	svc := app.NewScoringService(&fakeClassifier{err: boom}, scoringCfg(), nil)
	_, err := svc.Score(context.Background(), refBooking())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped model error", err)
	}
}
