// Command seed creates the demo accounts used in local development.
// Accounts that already exist are left untouched.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/database"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/queue"
	"github.com/iliyamo/hybrid-auth/internal/repository"
	"github.com/iliyamo/hybrid-auth/internal/service"
	"github.com/iliyamo/hybrid-auth/internal/utils"
)

var demoUsers = []service.NewUser{
	{Username: "admin", Email: "admin@test.com", Password: "password123", Role: "admin"},
	{Username: "usuario", Email: "user@test.com", Password: "password123", Role: "user"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "").Error(context.Background(), "invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DSN(), cfg.Pool())
	if err != nil {
		log.Error(ctx, "database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error(ctx, "migrate failed", "err", err)
		os.Exit(1)
	}

	hasher := utils.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	accounts := service.NewAccounts(repository.NewUserRepo(db), hasher, queue.NoopPublisher{}, log)
	for _, u := range demoUsers {
		id, err := accounts.Create(ctx, u)
		switch {
		case errors.Is(err, apperr.ErrDuplicateUsername), errors.Is(err, apperr.ErrDuplicateEmail):
			log.Info(ctx, "seed: already present", "username", u.Username)
		case err != nil:
			log.Error(ctx, "seed failed", "username", u.Username, "err", err)
			os.Exit(1)
		default:
			log.Info(ctx, "seed: created", "username", u.Username, "role", u.Role, "user_id", id)
		}
	}
}
