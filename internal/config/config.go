// Package config loads the server configuration from a YAML file with
// POS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type ServerSection struct {
	ListenAddr      string   `yaml:"listen_addr"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

type DatabaseSection struct {
	// Driver is "mysql" or "postgres".
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	TLS             bool   `yaml:"tls"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool   `yaml:"migrate_on_start"`
}

type AuthSection struct {
	JWTSecret  string `yaml:"jwt_secret"`
	TokenTTL   string `yaml:"token_ttl"`
	BcryptCost int    `yaml:"bcrypt_cost"`
	// Header is the request header carrying the token.
	Header string `yaml:"header"`
}

type RedisSection struct {
	// URL enables the auth rate limiter when set.
	URL         string `yaml:"url"`
	LoginLimit  int    `yaml:"login_limit"`
	LoginWindow string `yaml:"login_window"`
}

type LogSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetrySection struct {
	// Exporter is one of none, stdout or otlp.
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type ReceiptSection struct {
	StoreName    string `yaml:"store_name"`
	StoreAddress string `yaml:"store_address"`
	Currency     string `yaml:"currency"`
	ThanksLine   string `yaml:"thanks_line"`
	LogoPath     string `yaml:"logo_path"`
}

type Config struct {
	Server    ServerSection    `yaml:"server"`
	Database  DatabaseSection  `yaml:"database"`
	Auth      AuthSection      `yaml:"auth"`
	Redis     RedisSection     `yaml:"redis"`
	Log       LogSection       `yaml:"log"`
	Telemetry TelemetrySection `yaml:"telemetry"`
	Receipt   ReceiptSection   `yaml:"receipt"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			ListenAddr:      ":3000",
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Database: DatabaseSection{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            3306,
			Name:            "littlethings",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
			MigrateOnStart:  true,
		},
		Auth: AuthSection{
			TokenTTL:   "1h",
			BcryptCost: 10,
			Header:     "x-auth-token",
		},
		Redis: RedisSection{
			LoginLimit:  10,
			LoginWindow: "1m",
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetrySection{
			Exporter:    "none",
			ServiceName: "pos-server",
		},
		Receipt: ReceiptSection{
			StoreName:    "Little Things Cosmetics",
			StoreAddress: "78st, Bet: 102x102A, Mandalay, Myanmar",
			Currency:     "Ks",
			ThanksLine:   "Thanks For Shopping with Little Things",
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment overrides.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("POS_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.Server.ListenAddr = ":" + v
	}
	if v := os.Getenv("POS_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("POS_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("POS_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("POS_DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POS_DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := os.Getenv("POS_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("POS_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("POS_DB_NAME"); v != "" {
		c.Database.Name = v
	}

	if v := os.Getenv("POS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("POS_REDIS_URL"); v != "" {
		c.Redis.URL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv("POS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("POS_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	if v := os.Getenv("POS_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	return nil
}

// Validate checks the configuration and reports the first problem found.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must be set")
	}
	for name, v := range map[string]string{
		"server.read_timeout":        c.Server.ReadTimeout,
		"server.write_timeout":       c.Server.WriteTimeout,
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"database.conn_max_lifetime": c.Database.ConnMaxLifetime,
		"auth.token_ttl":             c.Auth.TokenTTL,
		"redis.login_window":         c.Redis.LoginWindow,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}

	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Name == "" {
		return errors.New("database.name must be set")
	}
	if c.Database.User == "" {
		return errors.New("database.user must be set")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.Header == "" {
		return errors.New("auth.header must be set")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	switch c.Telemetry.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter)
	}
	return nil
}

// ReadTimeout, WriteTimeout and the other accessors return parsed durations.
// Validate must have succeeded first.
func (c *Config) ReadTimeout() time.Duration     { return mustDuration(c.Server.ReadTimeout) }
func (c *Config) WriteTimeout() time.Duration    { return mustDuration(c.Server.WriteTimeout) }
func (c *Config) ShutdownTimeout() time.Duration { return mustDuration(c.Server.ShutdownTimeout) }
func (c *Config) ConnMaxLifetime() time.Duration { return mustDuration(c.Database.ConnMaxLifetime) }
func (c *Config) TokenTTL() time.Duration        { return mustDuration(c.Auth.TokenTTL) }
func (c *Config) LoginWindow() time.Duration     { return mustDuration(c.Redis.LoginWindow) }

// DSN builds the driver connection string for the configured database.
func (c *Config) DSN() string {
	db := c.Database
	if db.Driver == "postgres" {
		sslmode := "disable"
		if db.TLS {
			sslmode = "require"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Password),
			Host:     net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
			Path:     "/" + db.Name,
			RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
		}
		return u.String()
	}

	mc := mysql.NewConfig()
	mc.User = db.User
	mc.Passwd = db.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
	mc.DBName = db.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	// UPDATE reports matched rows, so an unchanged row is not mistaken for a
	// missing one.
	mc.ClientFoundRows = true
	if db.TLS {
		mc.TLSConfig = "skip-verify"
	}
	return mc.FormatDSN()
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
