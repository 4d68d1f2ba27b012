package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig mirrors the environment keys for CONFIG_FILE. Every field is optional.
type fileConfig struct {
	TelegramBotToken      string `yaml:"telegram_bot_token"`
	DatabaseDriver        string `yaml:"database_driver"`
	DatabaseURL           string `yaml:"database_url"`
	AdminPassword         string `yaml:"admin_password"`
	WebAdminPassword      string `yaml:"web_admin_password"`
	WebListenAddr         string `yaml:"web_listen_addr"`
	SessionTimeoutMinutes int    `yaml:"session_timeout_minutes"`
	SchedulerTimezone     string `yaml:"scheduler_timezone"`
	CronSpecDelivery      string `yaml:"cron_spec_delivery"`
	DeliveryTimeout       string `yaml:"delivery_timeout"`
	DeliveryWorkers       int    `yaml:"delivery_workers"`
	DeliveryRatePerSec    int    `yaml:"delivery_rate_per_sec"`
	AMQPURL               string `yaml:"amqp_url"`
	AMQPQueue             string `yaml:"amqp_queue"`
	LogLevel              string `yaml:"log_level"`
	Environment           string `yaml:"environment"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// lookup returns the file value for an environment key, or "".
func (f *fileConfig) lookup(key string) string {
	switch key {
	case "TELEGRAM_BOT_TOKEN":
		return f.TelegramBotToken
	case "DATABASE_DRIVER":
		return f.DatabaseDriver
	case "DATABASE_URL":
		return f.DatabaseURL
	case "ADMIN_PASSWORD":
		return f.AdminPassword
	case "WEB_ADMIN_PASSWORD":
		return f.WebAdminPassword
	case "WEB_LISTEN_ADDR":
		return f.WebListenAddr
	case "SESSION_TIMEOUT_MINUTES":
		return itoa(f.SessionTimeoutMinutes)
	case "SCHEDULER_TIMEZONE":
		return f.SchedulerTimezone
	case "CRON_SPEC_DELIVERY":
		return f.CronSpecDelivery
	case "DELIVERY_TIMEOUT":
		return f.DeliveryTimeout
	case "DELIVERY_WORKERS":
		return itoa(f.DeliveryWorkers)
	case "DELIVERY_RATE_PER_SEC":
		return itoa(f.DeliveryRatePerSec)
	case "AMQP_URL":
		return f.AMQPURL
	case "AMQP_QUEUE":
		return f.AMQPQueue
	case "LOG_LEVEL":
		return f.LogLevel
	case "ENVIRONMENT":
		return f.Environment
	}
	return ""
}

func itoa(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
