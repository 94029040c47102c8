// Command migrate applies, rolls back or reports the embedded schema
// migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/database"
	"github.com/iliyamo/hybrid-auth/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "up, down or status")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DSN(), cfg.Pool())
	if err != nil {
		log.Error(ctx, "database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	switch *direction {
	case "up":
		err = database.Migrate(ctx, db)
	case "down":
		err = database.MigrateDown(ctx, db)
	case "status":
		err = database.MigrationStatus(ctx, db)
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", *direction)
		os.Exit(2)
	}
	if err != nil {
		log.Error(ctx, "migration failed", "direction", *direction, "err", err)
		os.Exit(1)
	}
	log.Info(ctx, "migration done", "direction", *direction)
}
