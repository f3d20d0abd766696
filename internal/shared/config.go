package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	MetricsAddr   string
	LiveCSV       string
	HistoricalCSV string
	TopRoomsFile  string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	PredictorBase string
	PredictorKey  string
	PredictorRPS  int
	Workers       int
	CacheTTL      time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		LiveCSV:       env("LIVE_CSV", "data/reservas_vivas.csv"),
		HistoricalCSV: env("HISTORICAL_CSV", "data/reservas_historicas.csv"),
		TopRoomsFile:  env("TOP_ROOMS_FILE", ""),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisDB:       atoi("REDIS_DB", 0),
		RedisPass:     env("REDIS_PASSWORD", ""),
		PredictorBase: env("PREDICTOR_BASE_URL", "http://localhost:8501"),
		PredictorKey:  env("PREDICTOR_API_KEY", ""),
		PredictorRPS:  atoi("PREDICTOR_RPS", 10),
		Workers:       atoi("BACKFILL_WORKERS", 8),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.PredictorKey == "" {
		log.Warn().Msg("PREDICTOR_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
