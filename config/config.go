package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DBPath                 string
	JWTAccessSecret        string
	JWTRefreshSecret       string
	AccessTokenExpireHours int

	// Timezone is the IANA zone the service keys its calendar dates by.
	// All "today" computations go through this zone, never the host zone.
	Timezone string

	// CacheWarmDays is how many days beyond today the snapshot cache warms
	// at startup and on gate enable (0 = today only).
	CacheWarmDays int

	// ProvisionDays is how many days ahead the provisioner pre-creates
	// counter rows for; RetentionDays is how long old rows are kept.
	ProvisionDays int
	RetentionDays int
	ProvisionCron string

	// Counter policy. CounterMinValue is the floor a decrement may reach.
	// When CounterClampAtBound is true, out-of-range operations leave the
	// value at the boundary instead of being rejected.
	CounterMinValue     int
	CounterClampAtBound bool
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	accessExpire, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_HOURS", "1"))
	warmDays, _ := strconv.Atoi(getEnv("CACHE_WARM_DAYS", "0"))
	provisionDays, _ := strconv.Atoi(getEnv("PROVISION_DAYS", "10"))
	retentionDays, _ := strconv.Atoi(getEnv("RETENTION_DAYS", "7"))
	minValue, _ := strconv.Atoi(getEnv("COUNTER_MIN_VALUE", "0"))
	clamp, _ := strconv.ParseBool(getEnv("COUNTER_CLAMP_AT_BOUND", "false"))

	// Get required secrets (no defaults)
	jwtAccessSecret := os.Getenv("JWT_ACCESS_SECRET")
	jwtRefreshSecret := os.Getenv("JWT_REFRESH_SECRET")

	AppConfig = &Config{
		Port:                   getEnv("PORT", "8080"),
		DBPath:                 getEnv("DB_PATH", "./data/trip-counter.db"),
		JWTAccessSecret:        jwtAccessSecret,
		JWTRefreshSecret:       jwtRefreshSecret,
		AccessTokenExpireHours: accessExpire,
		Timezone:               getEnv("TIMEZONE", "Asia/Taipei"),
		CacheWarmDays:          warmDays,
		ProvisionDays:          provisionDays,
		RetentionDays:          retentionDays,
		ProvisionCron:          getEnv("PROVISION_CRON", "0 0 * * *"),
		CounterMinValue:        minValue,
		CounterClampAtBound:    clamp,
	}

	// Validate critical configuration
	if err := validateConfig(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// validateConfig validates critical configuration at startup
func validateConfig() error {
	// Validate JWT secrets
	if AppConfig.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required but not set")
	}
	if AppConfig.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required but not set")
	}

	// Enforce minimum secret strength (at least 32 characters)
	if len(AppConfig.JWTAccessSecret) < 32 {
		return fmt.Errorf("JWT_ACCESS_SECRET must be at least 32 characters long for security")
	}
	if len(AppConfig.JWTRefreshSecret) < 32 {
		return fmt.Errorf("JWT_REFRESH_SECRET must be at least 32 characters long for security")
	}

	// The zone must resolve, otherwise every date key would be wrong
	if _, err := time.LoadLocation(AppConfig.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", AppConfig.Timezone, err)
	}

	if AppConfig.CacheWarmDays < 0 {
		return fmt.Errorf("CACHE_WARM_DAYS must not be negative")
	}
	if AppConfig.ProvisionDays < 1 {
		return fmt.Errorf("PROVISION_DAYS must be at least 1")
	}
	if AppConfig.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative")
	}
	if AppConfig.CounterMinValue < 0 {
		return fmt.Errorf("COUNTER_MIN_VALUE must not be negative")
	}

	return nil
}
