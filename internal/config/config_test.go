package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "auth")
	t.Setenv("APP_ENV", "development")
	t.Setenv("SECRET_JWT_KEY", "")
	t.Setenv("REFRESH_SECRET", "")
	t.Setenv("SALT_ROUNDS", "")
	t.Setenv("TRUST_PROXY", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.NotEqual(t, cfg.AccessSecret, cfg.RefreshSecret)
	assert.False(t, cfg.Cookies().Secure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookies().SameSite)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, DBPool{MaxOpen: 25, MaxIdle: 25, MaxLifetime: 30 * time.Minute, MaxIdleTime: 5 * time.Minute}, cfg.Pool())
}

func TestLoad_TrustProxy(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)
}

func TestLoad_MissingRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_USER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SECRET_JWT_KEY", "a-long-access-secret")
	t.Setenv("REFRESH_SECRET", "a-long-refresh-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Cookies().Secure)
}

func TestLoad_RejectsSharedSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SECRET_JWT_KEY", "same")
	t.Setenv("REFRESH_SECRET", "same")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_BcryptCostBounds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SALT_ROUNDS", "3")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SALT_ROUNDS", "abc")
	_, err = Load()
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPass: "p", DBHost: "db", DBPort: "3306", DBName: "auth"}
	assert.Equal(t, "u:p@tcp(db:3306)/auth?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", cfg.DSN())
	cfg.DBPass = ""
	assert.Equal(t, "u@tcp(db:3306)/auth?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", cfg.DSN())
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "5m")
	t.Setenv("RATE_LIMIT_MAX", "10")
	rl := LoadRateLimitConfig()
	assert.True(t, rl.Enabled)
	assert.Equal(t, 5*time.Minute, rl.Window)
	assert.Equal(t, 10, rl.Max)

	t.Setenv("RATE_LIMIT_MAX", "0")
	assert.Equal(t, 1, LoadRateLimitConfig().Max)
}

func TestCookieConfig(t *testing.T) {
	cc := CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode, Path: "/"}
	ck := cc.New(AccessCookie, "tok", 15*time.Minute)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, 900, ck.MaxAge)

	gone := cc.Expired(AccessCookie)
	assert.Equal(t, -1, gone.MaxAge)
	assert.Empty(t, gone.Value)
}
