package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	server "reserva_score/internal/adapters/http_server"
	"reserva_score/internal/adapters/observability"
	"reserva_score/internal/adapters/predictor"
	redisad "reserva_score/internal/adapters/redis"
	"reserva_score/internal/app"
	"reserva_score/internal/features"
	"reserva_score/internal/shared"
	"reserva_score/internal/storage/csvstore"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve()

	rooms := features.DefaultTopRooms()
	if cfg.TopRoomsFile != "" {
		loaded, err := features.LoadTopRooms(cfg.TopRoomsFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.TopRoomsFile).Msg("top rooms file unreadable")
		}
		rooms = loaded
	}

	// deps
	store := csvstore.New(cfg.LiveCSV, cfg.HistoricalCSV, log.Logger)
	clf, err := predictor.New(cfg.PredictorBase, cfg.PredictorKey, cfg.PredictorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize predictor client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	scoring := app.NewScoringService(clf, features.Config{TopRooms: rooms}, nil)
	res := app.NewReservationService(store, scoring, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Scoring: scoring, Res: res})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
