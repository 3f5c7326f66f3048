package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SrishantKumar/E-Cell-Trading/internal/game"
)

type APIConfig struct {
	Addr         string
	DatabaseURL  string
	AdminSecret  string
	RedisURL     string
	SessionTTL   time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	Game         game.Params
}

type WorkerConfig struct {
	DatabaseURL  string
	TickEvery    time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	Game         game.Params
}

type CLIConfig struct {
	APIBaseURL  string
	AdminSecret string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ECELL_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:         addr,
		DatabaseURL:  strings.TrimSpace(os.Getenv("ECELL_DATABASE_URL")),
		AdminSecret:  strings.TrimSpace(os.Getenv("ECELL_ADMIN_SECRET")),
		RedisURL:     envDefault("ECELL_REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:   envDurationDefault("ECELL_SESSION_TTL", 24*time.Hour),
		KafkaBrokers: envList("ECELL_KAFKA_BROKERS"),
		KafkaTopic:   envDefault("ECELL_KAFKA_TOPIC", "ecell.market.events"),
		Game:         GameParamsFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("ECELL_DATABASE_URL is required")
	}
	if cfg.AdminSecret == "" {
		return cfg, fmt.Errorf("ECELL_ADMIN_SECRET is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:  strings.TrimSpace(os.Getenv("ECELL_DATABASE_URL")),
		TickEvery:    envDurationDefault("ECELL_TICK_EVERY", 2*time.Second),
		KafkaBrokers: envList("ECELL_KAFKA_BROKERS"),
		KafkaTopic:   envDefault("ECELL_KAFKA_TOPIC", "ecell.market.events"),
		Game:         GameParamsFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("ECELL_DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:  strings.TrimRight(envDefault("ECELL_API_BASE_URL", "http://localhost:8080"), "/"),
		AdminSecret: strings.TrimSpace(os.Getenv("ECELL_ADMIN_SECRET")),
	}
}

// GameParamsFromEnv starts from the deployed defaults and lets individual
// knobs be overridden per environment.
func GameParamsFromEnv() game.Params {
	p := game.DefaultParams()
	p.StartingCash = envDecimalDefault("ECELL_STARTING_CASH", p.StartingCash)
	p.StartingPrice = envDecimalDefault("ECELL_STARTING_PRICE", p.StartingPrice)
	p.SabotageCost = envDecimalDefault("ECELL_SABOTAGE_COST", p.SabotageCost)
	p.FreezeFor = envDurationDefault("ECELL_FREEZE_FOR", p.FreezeFor)
	p.SessionDuration = envDurationDefault("ECELL_SESSION_DURATION", p.SessionDuration)
	p.RoundDuration = envDurationDefault("ECELL_ROUND_DURATION", p.RoundDuration)
	p.Rounds = envIntDefault("ECELL_ROUNDS", p.Rounds)
	p.HistoryWindow = envIntDefault("ECELL_HISTORY_WINDOW", p.HistoryWindow)
	p.StimulusAmount = envDecimalDefault("ECELL_STIMULUS_AMOUNT", p.StimulusAmount)
	return p
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDecimalDefault(key string, fallback decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
