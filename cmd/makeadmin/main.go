// Command makeadmin grants the admin role to an existing account:
//
//	makeadmin user@example.com
package main

import (
	"context"
	"errors"
	"fmt"
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

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: makeadmin <email>")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DSN(), cfg.Pool())
	if err != nil {
		log.Error(ctx, "database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	accounts := service.NewAccounts(repository.NewUserRepo(db), utils.NewHasher(cfg.BcryptCost, 1), queue.NoopPublisher{}, log)
	u, err := accounts.PromoteByEmail(ctx, os.Args[1])
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		fmt.Fprintf(os.Stderr, "no account registered under %s\n", os.Args[1])
		os.Exit(1)
	case err != nil:
		log.Error(ctx, "promote failed", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%s (%s) is now %s\n", u.Username, u.Email, u.Role)
}
