package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	RedisChannel             string
	AuthSecret               string
	AccessTokenTTLMinutes    int
	DashboardCacheTTLSeconds int
	LogLevel                 string
	LogFormat                string
	DefaultLowStockQty       int
	DefaultLowStockValue     decimal.Decimal
	SeedAdminEmail           string
	SeedAdminPassword        string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL := getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480, 1)
	cacheTTL := getEnvInt("DASHBOARD_CACHE_TTL_SECONDS", 30, 1)
	lowQty := getEnvInt("DEFAULT_LOW_STOCK_QTY", 5, 0)

	lowValue, err := decimal.NewFromString(getEnv("DEFAULT_LOW_STOCK_VALUE", "1000"))
	if err != nil || lowValue.IsNegative() {
		lowValue = decimal.NewFromInt(1000)
	}

	return Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		RedisChannel:             getEnv("REDIS_CHANNEL", "murlidhar:changes"),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		DashboardCacheTTLSeconds: cacheTTL,
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "console"),
		DefaultLowStockQty:       lowQty,
		DefaultLowStockValue:     lowValue,
		SeedAdminEmail:           strings.ToLower(strings.TrimSpace(getEnv("SEED_ADMIN_EMAIL", "admin@murlidhar.local"))),
		SeedAdminPassword:        os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int, min int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < min {
		return fallback
	}
	return val
}
