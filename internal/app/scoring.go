// Package app wires the feature pipeline, the classifier and the
// reconciliation store into the two services the API exposes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reserva_score/internal/adapters/observability"
	"reserva_score/internal/domain"
	"reserva_score/internal/features"
)

// ScoringService is the only place the classifier is invoked. It owns the
// training-time feature configuration and the trained feature ordering.
type ScoringService struct {
	classifier domain.Classifier
	cfg        features.Config
	names      []string
}

func NewScoringService(classifier domain.Classifier, cfg features.Config, featureNames []string) *ScoringService {
	if len(featureNames) == 0 {
		featureNames = domain.TrainedFeatureNames
	}
	return &ScoringService{classifier: classifier, cfg: cfg, names: featureNames}
}

// Score derives the feature vector, projects it onto the trained ordering
// and asks the classifier for the positive-class probability. The returned
// probability is always a fraction; the tier mapping is fixed policy.
func (s *ScoringService) Score(ctx context.Context, raw domain.RawBooking) (domain.ScoreResult, error) {
	fv, err := features.Derive(raw, s.cfg)
	if err != nil {
		observability.ObserveScoring("error")
		return domain.ScoreResult{}, err
	}
	feats, err := fv.Project(s.names)
	if err != nil {
		observability.ObserveScoring("error")
		return domain.ScoreResult{}, err
	}
	p, err := s.classifier.PredictProba(ctx, feats)
	if err != nil {
		observability.ObserveScoring("error")
		return domain.ScoreResult{}, fmt.Errorf("classifier: %w", err)
	}
	if p > 1.0 {
		p = p / 100.0 // some serving stacks answer in percent
	}

	tier := domain.TierFor(p)
	observability.ObserveScoring(string(tier))
	return domain.ScoreResult{
		ScoringID:   uuid.NewString(),
		Probability: p,
		Tier:        tier,
		Features:    len(feats),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
