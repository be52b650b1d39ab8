package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig

	Storage         string
	AutoMigrate     bool
	PlanPath        string // restaurant plan yaml; empty = built-in plan
	BookingDuration time.Duration
	LockTimeout     time.Duration
	MetricsAddr     string
	LogLevel        string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token       string // staff bot; empty disables the bot
	StaffChatID int64  // receives pending-booking alerts
}

type RedisConfig struct {
	Addr     string // empty = in-process locks
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL      string // empty disables the publisher
	Exchange string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	durationMin, err := strconv.Atoi(getEnv("BOOKING_DURATION_MINUTES", "120"))
	if err != nil || durationMin <= 0 {
		return nil, fmt.Errorf("BOOKING_DURATION_MINUTES must be a positive integer")
	}
	lockSec, err := strconv.Atoi(getEnv("LOCK_TIMEOUT_SECONDS", "5"))
	if err != nil || lockSec <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT_SECONDS must be a positive integer")
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	staffChat, err := strconv.ParseInt(getEnv("STAFF_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("STAFF_CHAT_ID: %w", err)
	}

	storage := strings.ToLower(getEnv("STORAGE", StoragePostgres))
	if storage != StorageMemory && storage != StoragePostgres {
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, storage)
	}
	autoMigrate := strings.TrimSpace(os.Getenv("AUTO_MIGRATE"))

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "restaurant"),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TOKEN", ""),
			StaffChatID: staffChat,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("NOTIFY_EXCHANGE", "restaurant_events"),
		},
		Storage:         storage,
		AutoMigrate:     autoMigrate == "1" || strings.EqualFold(autoMigrate, "true"),
		PlanPath:        getEnv("RESTAURANT_PLAN", ""),
		BookingDuration: time.Duration(durationMin) * time.Minute,
		LockTimeout:     time.Duration(lockSec) * time.Second,
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
