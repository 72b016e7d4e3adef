package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/pricing"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=designhouse port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	DBMaxOpenConns int
	TxTimeout      time.Duration

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	Pricing pricing.Policy

	// DiscrepancyAlertPercent flags finalized orders whose weight is off by
	// more than this; zero disables the check.
	DiscrepancyAlertPercent decimal.Decimal
	// DiscrepancyHold refuses to finalize such orders instead of flagging them.
	DiscrepancyHold bool
}

// Load reads a .env file when present, then the environment. Invalid
// settings are fatal.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Get().Info("loaded .env file")
	}

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Get().Fatalf("[FATAL] %v", err)
	}

	log := logger.Get()
	if cfg.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Warn("CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	return cfg
}

// Parse builds a Config from getenv.
func Parse(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPPort:      get("HTTP_PORT", "8080"),
		DatabaseDSN:   get("DATABASE_DSN", defaultDSN),
		JWTSecret:     get("JWT_SECRET", ""),
		CORSOrigins:   get("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:      get("LOG_LEVEL", "info"),
		RedisAddress:  get("REDIS_ADDRESS", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		KafkaTopic:    get("KAFKA_TOPIC", "designhouse.events"),
		Pricing: pricing.Policy{
			TierRule:   pricing.TierRule(get("PRICING_TIER_RULE", string(pricing.SmallestEligible))),
			OutOfRange: pricing.OutOfRange(get("PRICING_OUT_OF_RANGE", string(pricing.LowestTier))),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	var err error
	if cfg.RedisDB, err = atoi("REDIS_DB", get("REDIS_DB", "0")); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = atoi("DB_MAX_OPEN_CONNS", get("DB_MAX_OPEN_CONNS", "25")); err != nil {
		return nil, err
	}
	secs, err := atoi("TX_TIMEOUT_SECONDS", get("TX_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, err
	}
	cfg.TxTimeout = time.Duration(secs) * time.Second

	for _, b := range strings.Split(get("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	switch cfg.Pricing.TierRule {
	case pricing.SmallestEligible, pricing.LargestEligible:
	default:
		return nil, fmt.Errorf("PRICING_TIER_RULE must be %s or %s", pricing.SmallestEligible, pricing.LargestEligible)
	}
	switch cfg.Pricing.OutOfRange {
	case pricing.LowestTier, pricing.Reject:
	default:
		return nil, fmt.Errorf("PRICING_OUT_OF_RANGE must be %s or %s", pricing.LowestTier, pricing.Reject)
	}

	cfg.DiscrepancyAlertPercent, err = decimal.NewFromString(get("DISCREPANCY_ALERT_PERCENT", "5"))
	if err != nil || cfg.DiscrepancyAlertPercent.IsNegative() {
		return nil, fmt.Errorf("DISCREPANCY_ALERT_PERCENT must be a non-negative number")
	}
	if cfg.DiscrepancyHold, err = strconv.ParseBool(get("DISCREPANCY_HOLD", "false")); err != nil {
		return nil, fmt.Errorf("DISCREPANCY_HOLD must be true or false")
	}

	return cfg, nil
}

func atoi(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
