package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=ledger_engine_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultCurrency = "USD"
const defaultSettlementInterval = time.Hour

type Config struct {
	DatabaseDSN        string
	MigrationsDir      string
	DefaultCurrency    string
	SettlementInterval time.Duration
}

func Load() (Config, error) {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	currency := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY")))
	if currency == "" {
		currency = defaultCurrency
	}

	interval := defaultSettlementInterval
	if raw := strings.TrimSpace(os.Getenv("SETTLEMENT_INTERVAL")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			if seconds, convErr := strconv.Atoi(raw); convErr == nil {
				parsed = time.Duration(seconds) * time.Second
			} else {
				return Config{}, err
			}
		}
		interval = parsed
	}

	migrationsDir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR"))
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	return Config{
		DatabaseDSN:        normalizeConnectionString(conn),
		MigrationsDir:      migrationsDir,
		DefaultCurrency:    currency,
		SettlementInterval: interval,
	}, nil
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
