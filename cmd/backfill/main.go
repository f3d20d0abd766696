// Command backfill re-scores every reservation in the merged view against
// the currently deployed model and writes the refreshed probability back,
// so the stored risk figures never drift from the serving model.
package main

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reserva_score/internal/adapters/observability"
	"reserva_score/internal/adapters/predictor"
	"reserva_score/internal/app"
	"reserva_score/internal/domain"
	"reserva_score/internal/features"
	"reserva_score/internal/shared"
	"reserva_score/internal/storage/csvstore"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "backfill")

	log.Info().
		Str("base", cfg.PredictorBase).
		Int("workers", cfg.Workers).
		Msg("backfill starting")

	rooms := features.DefaultTopRooms()
	if cfg.TopRoomsFile != "" {
		loaded, err := features.LoadTopRooms(cfg.TopRoomsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.TopRoomsFile).Msg("top rooms file unreadable")
		}
		rooms = loaded
	}

	store := csvstore.New(cfg.LiveCSV, cfg.HistoricalCSV, log.Logger)
	clf, err := predictor.New(cfg.PredictorBase, cfg.PredictorKey, cfg.PredictorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize predictor client")
	}
	scoring := app.NewScoringService(clf, features.Config{TopRooms: rooms}, nil)

	rows, err := store.LoadAll(ctx)
	if err != nil && len(rows) == 0 {
		log.Fatal().Err(err).Msg("load failed")
	}
	if err != nil {
		log.Warn().Err(err).Msg("historical source degraded, rescoring what loaded")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, row := range rows {
		row := row
		if row.Arrival == nil {
			log.Warn().Str("id", row.ID).Msg("no arrival date, skipping")
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(r domain.Reservation) {
			defer wg.Done()
			defer sem.Release(int64(1))

			res, err := scoring.Score(ctx, rawFrom(r))
			if err != nil {
				log.Warn().Str("id", r.ID).Err(err).Msg("rescore failed")
				return
			}
			ok, err := store.UpdateField(ctx, r.ID, "PROBABILIDAD_CANCELACION",
				strconv.FormatFloat(res.Probability, 'f', -1, 64))
			if err != nil {
				log.Warn().Str("id", r.ID).Err(err).Msg("write back failed")
				return
			}
			if !ok {
				log.Warn().Str("id", r.ID).Msg("row vanished during backfill")
				return
			}
			log.Info().Str("id", r.ID).Float64("prob", res.Probability).Str("tier", string(res.Tier)).Msg("rescore ok")
		}(row)
	}

	wg.Wait()
	log.Info().Msg("backfill completed")
}

// rawFrom rebuilds the scoring input from a stored row. Columns the stored
// schemas never carried (adults, group id) fall back to neutral values.
func rawFrom(r domain.Reservation) domain.RawBooking {
	booked := *r.Arrival
	if r.CreatedAt != nil {
		booked = *r.CreatedAt
	}
	return domain.RawBooking{
		Arrival:     *r.Arrival,
		BookedAt:    booked,
		Nights:      r.Nights,
		Guests:      r.Guests,
		Adults:      r.Guests,
		Value:       r.Value,
		RoomCode:    r.RoomCode,
		ClientName:  str(r.ClientName),
		Country:     str(r.Market),
		Segment:     str(r.Segment),
		Channel:     str(r.Channel),
		ComplexName: str(r.ComplexName),
		Loyalty:     str(r.Loyalty),
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
