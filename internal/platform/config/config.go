// Package config loads application configuration from the environment.
// A .env file in the working directory is applied first when present so
// local development does not need exported variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Store     StoreConfig     `envPrefix:"STORE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Bluetooth BluetoothConfig `envPrefix:"BLUETOOTH_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	// ReadTimeout bounds JSON API request reads. No WriteTimeout is set
	// on the server: the WebSocket event stream holds connections open
	// and enforces its own write deadlines.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// AuthConfig controls local authentication and token issuance.
type AuthConfig struct {
	// JWTSigningKey has a development default; override it in any real
	// deployment.
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer        string        `env:"ISSUER" envDefault:"ruconnect"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"15m"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	// DeviceBinding ties sessions to a device fingerprint derived from
	// the User-Agent header.
	DeviceBinding bool `env:"DEVICE_BINDING" envDefault:"true"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "postgres". Memory keeps the daemon
	// self-contained for demos; postgres persists across restarts.
	Driver      string        `env:"DRIVER" envDefault:"memory"`
	PostgresDSN string        `env:"POSTGRES_DSN"`
	MaxConns    int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns    int32         `env:"MIN_CONNS" envDefault:"2"`
	ConnTimeout time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
}

// RedisConfig tunes the optional Redis connection. An empty URL disables
// Redis; the token revocation list then runs in memory.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// BluetoothConfig controls the peripheral link manager.
type BluetoothConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
	// ScanWindow bounds a scan when the caller supplies no duration.
	ScanWindow time.Duration `env:"SCAN_WINDOW" envDefault:"10s"`
	// WriteLimit caps outgoing characteristic payloads, in bytes.
	WriteLimit  int `env:"WRITE_LIMIT" envDefault:"244"`
	EventBuffer int `env:"EVENT_BUFFER" envDefault:"64"`
}

// AuditConfig controls the audit trail worker and its optional Kafka
// mirror. Empty Brokers keeps audit local.
type AuditConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"ruconnect.audit"`
	Buffer  int      `env:"BUFFER" envDefault:"256"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads the .env file when present, then parses the environment
// into a Config.
func Load() (Config, error) {
	// The .env file is optional; a missing file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Store.Driver != "memory" && cfg.Store.Driver != "postgres" {
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.PostgresDSN == "" {
		return Config{}, fmt.Errorf("STORE_POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}

	return cfg, nil
}
