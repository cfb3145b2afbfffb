package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SuggestTTLSeconds     int
	DebounceMS            int
	AuthSecret            string
	AccessTokenTTLMinutes int
	FreePlanInvoiceLimit  int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	suggestTTL, err := strconv.Atoi(getEnv("SUGGEST_TTL_SECONDS", "30"))
	if err != nil || suggestTTL < 1 {
		suggestTTL = 30
	}
	debounceMS, err := strconv.Atoi(getEnv("SUGGEST_DEBOUNCE_MS", "300"))
	if err != nil || debounceMS < 0 {
		debounceMS = 300
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	freeLimit, err := strconv.Atoi(getEnv("FREE_PLAN_INVOICE_LIMIT", "10"))
	if err != nil || freeLimit < 1 {
		freeLimit = 10
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		SuggestTTLSeconds:     suggestTTL,
		DebounceMS:            debounceMS,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		FreePlanInvoiceLimit:  freeLimit,
	}

	return cfg
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
