// Package config loads process configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends.
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET, required"`

	BcryptCost     int    `env:"BCRYPT_COST,     default=10"`
	StorageBackend string `env:"STORAGE_BACKEND, default=file"`
	DataDir        string `env:"DATA_DIR,        default=./data"`
	SeedFile       string `env:"SEED_FILE"`

	AuditCapacity   int           `env:"AUDIT_CAPACITY,   default=10000"`
	AlertCapacity   int           `env:"ALERT_CAPACITY,   default=1000"`
	DetectionWindow time.Duration `env:"DETECTION_WINDOW, default=15m"`
	SweepSchedule   string        `env:"SWEEP_SCHEDULE,   default=@every 1m"`

	// TrustedProxies is a comma-separated list of CIDRs allowed to set
	// X-Forwarded-For. Empty trusts no forwarding header.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Legacy LegacyConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

// LegacyConfig controls the upgrade-on-login path for principals whose
// stored hash predates bcrypt.
type LegacyConfig struct {
	Enabled  bool   `env:"LEGACY_BOOTSTRAP_ENABLED, default=false"`
	Password string `env:"LEGACY_BOOTSTRAP_PASSWORD"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=opsdesk_security"`
}

// RedisConfig enables alert fan-out when Addr is set.
type RedisConfig struct {
	Addr    string `env:"REDIS_ADDR"`
	DB      int    `env:"REDIS_DB,      default=0"`
	Channel string `env:"ALERT_CHANNEL, default=security:alerts"`
}

// IsDevelopment reports whether human-friendly logs should be emitted.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return Parse(ctx, envconfig.OsLookuper())
}

// Parse reads configuration from lookuper and validates it.
func Parse(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects combinations the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if c.StorageBackend != BackendFile && c.StorageBackend != BackendMongo {
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendMongo, c.StorageBackend))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be blank"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if c.AuditCapacity <= 0 {
		errs = append(errs, errors.New("AUDIT_CAPACITY must be positive"))
	}
	if c.AlertCapacity <= 0 {
		errs = append(errs, errors.New("ALERT_CAPACITY must be positive"))
	}
	if c.DetectionWindow <= 0 {
		errs = append(errs, errors.New("DETECTION_WINDOW must be positive"))
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}
	if c.Legacy.Enabled && c.Legacy.Password == "" {
		errs = append(errs, errors.New("LEGACY_BOOTSTRAP_PASSWORD is required when LEGACY_BOOTSTRAP_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// TrustedProxyNets parses TrustedProxies. A bare IP is treated as a single
// host network.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
