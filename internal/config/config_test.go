package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Database.User = "pos"
	cfg.Auth.JWTSecret = "secret"
	return cfg
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":8080"
database:
  driver: postgres
  port: 5432
  user: pos
auth:
  jwt_secret: s3cret
  token_ttl: 2h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "littlethings", cfg.Database.Name, "default kept")
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "x-auth-token", cfg.Auth.Header)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POS_DB_HOST", "db.internal")
	t.Setenv("POS_DB_PORT", "3307")
	t.Setenv("POS_JWT_SECRET", "env-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("POS_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Default()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	t.Setenv("POS_DB_PORT", "abc")
	assert.Error(t, cfg.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"bad duration", func(c *Config) { c.Auth.TokenTTL = "soon" }, "auth.token_ttl"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad exporter", func(c *Config) { c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt_cost"},
		{"missing user", func(c *Config) { c.Database.User = "" }, "database.user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "pw"

	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "pos:pw@tcp(localhost:3306)/littlethings?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")

	cfg.Database.Driver = "postgres"
	cfg.Database.Port = 5432
	assert.Equal(t, "postgres://pos:pw@localhost:5432/littlethings?sslmode=disable", cfg.DSN())
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	for _, pw := range []string{"two words", "it's", "p@ss/w:rd?#%"} {
		t.Run(pw, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = "postgres"
			cfg.Database.Port = 5432
			cfg.Database.Password = pw

			u, err := url.Parse(cfg.DSN())
			require.NoError(t, err)
			got, ok := u.User.Password()
			require.True(t, ok)
			assert.Equal(t, pw, got)
			assert.Equal(t, "pos", u.User.Username())
			assert.Equal(t, "/littlethings", u.Path)

			_, err = pq.NewConnector(cfg.DSN())
			assert.NoError(t, err)
		})
	}
}
