// Package predictor talks to the model-serving endpoint that hosts the
// trained cancellation classifier. The model itself is an opaque
// collaborator; this client only ships feature rows and reads back the
// positive-class probability.
package predictor

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reserva_score/internal/adapters/observability"
	"reserva_score/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("predictor base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 15 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrNotFound     = errors.New("predictor: model not found")
	ErrUnauthorized = errors.New("predictor: unauthorized")
	ErrForbidden    = errors.New("predictor: forbidden")
)

// wire shapes. Numeric features travel as JSON numbers, categorical ones as
// strings, which is what the serving stack feeds the booster's row parser.
type predictRequest struct {
	Features []featureCell `json:"features"`
}

type featureCell struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type predictResponse struct {
	// Either a two-class distribution or a bare positive-class value,
	// depending on the serving stack version.
	Probabilities []float64 `json:"probabilities,omitempty"`
	Probability   *float64  `json:"probability,omitempty"`
}

// PredictProba sends one feature row and returns the cancellation
// probability. Implements domain.Classifier.
func (c *Client) PredictProba(ctx context.Context, feats []domain.Feature) (float64, error) {
	req := predictRequest{Features: make([]featureCell, 0, len(feats))}
	for _, f := range feats {
		if f.Kind == domain.Categorical {
			req.Features = append(req.Features, featureCell{Name: f.Name, Value: f.Category})
		} else {
			req.Features = append(req.Features, featureCell{Name: f.Name, Value: f.Number})
		}
	}

	var resp predictResponse
	if err := c.post(ctx, c.base+"/v1/predict", req, &resp); err != nil {
		return 0, err
	}
	switch {
	case len(resp.Probabilities) == 2:
		return resp.Probabilities[1], nil
	case resp.Probability != nil:
		return *resp.Probability, nil
	}
	return 0, fmt.Errorf("predictor: malformed response")
}

// post performs a POST with client-side rate limiting and retries on 429
// and transient 5xx, honoring Retry-After when provided. Inference is
// stateless so retrying is always safe.
func (c *Client) post(ctx context.Context, url string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "reserva-score/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("predictor", "/v1/predict", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("predictor: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("predictor: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter to avoid thundering herds across workers.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
