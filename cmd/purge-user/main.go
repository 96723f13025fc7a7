// Command purge-user deletes a user and every travel plan they own.
//
// Usage:
//
//	purge-user -email alice@example.com
//
// Only DATABASE_URL is read from the environment (or .env).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/pkordes/travel-planner/backend/internal/domain"
	"github.com/pkordes/travel-planner/backend/internal/repo"
	"github.com/pkordes/travel-planner/backend/internal/service"
)

func main() {
	email := flag.String("email", "", "email of the user to delete")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(strings.TrimSpace(*email), *timeout); err != nil {
		logger.Error("purge failed", "email", *email, "error", err)
		os.Exit(1)
	}
	logger.Info("user purged", "email", *email)
}

func run(email string, timeout time.Duration) error {
	if email == "" {
		return errors.New("-email is required")
	}
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	err = service.NewUserService(repo.NewStore(pool)).Purge(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no user with email %q", email)
	}
	return err
}
