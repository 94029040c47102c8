// Package database opens the MySQL pool and applies the embedded schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hybrid-auth/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to MySQL using dsn, sizes the pool and pings once.  The
// pool is closed again when the ping fails.
func Open(ctx context.Context, dsn string, pool config.DBPool) (*sql.DB, error) {
	return open(ctx, "mysql", dsn, pool)
}

func open(ctx context.Context, driver, dsn string, pool config.DBPool) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return db, nil
}
