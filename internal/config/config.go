package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Vault       VaultConfig
	Limiter     LimiterConfig
	Traffic     TrafficConfig
	Journal     JournalConfig
	Monitor     MonitorConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type VaultConfig struct {
	RPCURL          string
	AccountKey      string
	MerchantAddress string
	CallTimeout     time.Duration
	BreakerTrips    int
	BreakerCooldown time.Duration
}

type LimiterConfig struct {
	Window    time.Duration
	Threshold int
}

type TrafficConfig struct {
	PerSecond float64
	Burst     int
}

type JournalConfig struct {
	Path   string
	Bucket string
}

type MonitorConfig struct {
	Interval      time.Duration
	SweepInterval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "paytab-backend"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "4000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Vault: VaultConfig{
			RPCURL:          os.Getenv("VAULT_RPC_URL"),
			AccountKey:      os.Getenv("VAULT_ACCOUNT_KEY"),
			MerchantAddress: os.Getenv("MERCHANT_ADDRESS"),
			CallTimeout:     getDuration("VAULT_CALL_TIMEOUT", 15*time.Second),
			BreakerTrips:    getInt("VAULT_BREAKER_TRIPS", 5),
			BreakerCooldown: getDuration("VAULT_BREAKER_COOLDOWN", 30*time.Second),
		},
		Limiter: LimiterConfig{
			Window:    getDuration("SPEND_WINDOW_SECONDS", 10*time.Second),
			Threshold: getInt("SPEND_WINDOW_THRESHOLD", 5),
		},
		Traffic: TrafficConfig{
			PerSecond: float64(getInt("GATEWAY_REQUESTS_PER_SECOND", 100)),
			Burst:     getInt("GATEWAY_BURST", 200),
		},
		Journal: JournalConfig{
			Path:   getString("JOURNAL_PATH", "./data/journal.db"),
			Bucket: getString("JOURNAL_BUCKET", "journal"),
		},
		Monitor: MonitorConfig{
			Interval:      getDuration("MONITOR_INTERVAL_SECONDS", 10*time.Second),
			SweepInterval: getDuration("DIVERGENCE_SWEEP_SECONDS", 30*time.Second),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if cfg.Vault.RPCURL == "" {
		return nil, fmt.Errorf("VAULT_RPC_URL is required")
	}
	if cfg.Vault.MerchantAddress == "" {
		return nil, fmt.Errorf("MERCHANT_ADDRESS is required")
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
