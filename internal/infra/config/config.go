package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken         string
	DatabaseDriver        string
	DatabaseURL           string
	AdminPassword         string // For the /admin chat command
	WebAdminPassword      string // For the web console login
	WebListenAddr         string
	SessionTimeout        time.Duration
	SchedulerTimezone     string // Process-wide zone: defines "today" and the cron location
	CronSpecDelivery      string // Delivery pass cadence
	DeliveryTimeout       time.Duration
	DeliveryWorkers       int
	DeliveryRatePerSecond int
	AMQPURL               string // Empty disables delivery events
	AMQPQueue             string
	LogLevel              string
	Environment           string
}

// Load reads configuration from environment variables, a .env file (if present)
// and an optional YAML file named by CONFIG_FILE. Environment variables win.
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	file := &fileConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		file, err = loadFile(path)
		if err != nil {
			return nil, err
		}
	}

	return build(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file.lookup(key)
	})
}

func build(get func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = get("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	cfg.DatabaseDriver = strings.ToLower(get("DATABASE_DRIVER"))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverPostgres
	}
	if cfg.DatabaseDriver != DriverPostgres && cfg.DatabaseDriver != DriverSQLite {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q (want %s or %s)", cfg.DatabaseDriver, DriverPostgres, DriverSQLite)
	}

	cfg.DatabaseURL = get("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AdminPassword = get("ADMIN_PASSWORD")
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is not set")
	}

	cfg.WebAdminPassword = get("WEB_ADMIN_PASSWORD")
	if cfg.WebAdminPassword == "" {
		return nil, fmt.Errorf("WEB_ADMIN_PASSWORD is not set")
	}

	cfg.WebListenAddr = get("WEB_LISTEN_ADDR")
	if cfg.WebListenAddr == "" {
		cfg.WebListenAddr = "0.0.0.0:5000"
	}

	sessionMinutes, err := intOrDefault(get("SESSION_TIMEOUT_MINUTES"), 30)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TIMEOUT_MINUTES: %w", err)
	}
	cfg.SessionTimeout = time.Duration(sessionMinutes) * time.Minute

	cfg.SchedulerTimezone = get("SCHEDULER_TIMEZONE")
	if cfg.SchedulerTimezone == "" {
		cfg.SchedulerTimezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.SchedulerTimezone); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}

	cfg.CronSpecDelivery = get("CRON_SPEC_DELIVERY")
	if cfg.CronSpecDelivery == "" {
		cfg.CronSpecDelivery = "* * * * *" // Default: every minute, on the minute
	}

	cfg.DeliveryTimeout, err = durationOrDefault(get("DELIVERY_TIMEOUT"), 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_TIMEOUT: %w", err)
	}

	cfg.DeliveryWorkers, err = intOrDefault(get("DELIVERY_WORKERS"), 8)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_WORKERS: %w", err)
	}

	cfg.DeliveryRatePerSecond, err = intOrDefault(get("DELIVERY_RATE_PER_SEC"), 25)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_RATE_PER_SEC: %w", err)
	}

	cfg.AMQPURL = get("AMQP_URL")
	cfg.AMQPQueue = get("AMQP_QUEUE")
	if cfg.AMQPQueue == "" {
		cfg.AMQPQueue = "delivery_events"
	}

	cfg.LogLevel = strings.ToLower(get("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(get("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func intOrDefault(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", v)
	}
	return v, nil
}

func durationOrDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
