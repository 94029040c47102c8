package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Development fallbacks for the signing secrets.  Production refuses to start
// with them.
const (
	devAccessSecret  = "dev-access-token-secret-key"
	devRefreshSecret = "dev-refresh-token-secret-key"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env                  string        // application environment (development, test, production)
	Port                 string        // HTTP port to listen on
	DBUser               string        // database username
	DBPass               string        // database password (optional)
	DBHost               string        // database host address
	DBPort               string        // database port number
	DBName               string        // database name
	DBAutoMigrate        bool          // run embedded migrations at startup
	DBMaxOpenConns       int           // pool size
	DBMaxIdleConns       int           // idle connections kept in the pool
	DBConnMaxLifetime    time.Duration // recycle connections older than this
	AccessSecret         string        // HMAC secret for access tokens
	RefreshSecret        string        // HMAC secret for refresh tokens, must differ from AccessSecret
	AccessTTL            time.Duration // access token lifetime
	RefreshTTL           time.Duration // refresh token lifetime
	SessionTTL           time.Duration // server session lifetime
	SessionPurgeInterval time.Duration // how often expired sessions are deleted
	BcryptCost           int           // bcrypt work factor
	HashWorkers          int           // concurrent password hashing operations
	TrustProxy           bool          // take the client address from X-Forwarded-For set by a private-range proxy
}

// Production reports whether the app runs with production hardening.
func (c Config) Production() bool { return c.Env == "production" }

// Addr returns the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// Cookies returns the attribute policy shared by every cookie the app emits.
func (c Config) Cookies() CookieConfig {
	return CookieConfig{Secure: c.Production(), SameSite: http.SameSiteStrictMode, Path: "/"}
}

// Load reads an optional .env file and then the environment.  Missing
// required variables and unsafe secret combinations are reported together.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside local development

	var errs []error
	required := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	cfg := Config{
		Env:                  envStr("APP_ENV", "development"),
		Port:                 envStr("APP_PORT", "3000"),
		DBUser:               required("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"),
		DBHost:               envStr("DB_HOST", "127.0.0.1"),
		DBPort:               envStr("DB_PORT", "3306"),
		DBName:               required("DB_NAME"),
		DBAutoMigrate:        envBool("DB_AUTO_MIGRATE", true),
		DBMaxOpenConns:       envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       envInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime:    envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		AccessSecret:         os.Getenv("SECRET_JWT_KEY"),
		RefreshSecret:        os.Getenv("REFRESH_SECRET"),
		AccessTTL:            envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:           envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SessionTTL:           envDur("SESSION_TTL", 24*time.Hour),
		SessionPurgeInterval: envDur("SESSION_PURGE_INTERVAL", 15*time.Minute),
		HashWorkers:          envInt("HASH_WORKERS", runtime.GOMAXPROCS(0)),
		TrustProxy:           envBool("TRUST_PROXY", false),
	}

	cost, err := strconv.Atoi(envStr("SALT_ROUNDS", "10"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid int for SALT_ROUNDS: %w", err))
	}
	cfg.BcryptCost = cost

	if cfg.Production() {
		if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
			errs = append(errs, errors.New("SECRET_JWT_KEY and REFRESH_SECRET must be set in production"))
		}
	} else {
		if cfg.AccessSecret == "" {
			cfg.AccessSecret = devAccessSecret
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = devRefreshSecret
		}
	}
	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("SECRET_JWT_KEY and REFRESH_SECRET must differ"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, errors.New("SALT_ROUNDS must be between 4 and 31"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, errors.New("token and session TTLs must be positive"))
	}
	if c.DBMaxOpenConns < 1 || c.DBMaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be at least 1 and DB_MAX_IDLE_CONNS not negative"))
	}
	if c.HashWorkers < 1 {
		errs = append(errs, errors.New("HASH_WORKERS must be at least 1"))
	}
	return errors.Join(errs...)
}

// DBPool sizes the database/sql connection pool.
type DBPool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Pool returns the connection pool settings.  Idle connections are closed
// after five minutes.
func (c Config) Pool() DBPool {
	return DBPool{
		MaxOpen:     c.DBMaxOpenConns,
		MaxIdle:     c.DBMaxIdleConns,
		MaxLifetime: c.DBConnMaxLifetime,
		MaxIdleTime: 5 * time.Minute,
	}
}

// DSN builds the MySQL data source name.  parseTime=true maps DATETIME to
// time.Time, loc=UTC keeps times consistent and clientFoundRows makes an
// UPDATE to an unchanged value still report the matched row.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, c.DBHost, c.DBPort, c.DBName)
}
