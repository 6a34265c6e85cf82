package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/repositories"
	"github.com/veritasx01/audion-backend/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert demo user accounts into the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "password",
				Usage: "Password shared by all demo accounts",
				Value: "audion123",
			},
		},
		Action: r.Seed,
	}
}

// seedStore is the subset of [repositories.UserRepository] the seed needs.
type seedStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Add(ctx context.Context, user models.User) (*models.User, error)
}

// demoUsers returns the demo accounts. The first is an admin so protected
// routes are reachable out of the box.
func demoUsers() []models.User {
	return []models.User{
		{
			Username:   "johndoe",
			FullName:   "John Doe",
			Email:      "johndoe@example.com",
			ProfileImg: "https://randomuser.me/api/portraits/thumb/men/1.jpg",
			IsAdmin:    true,
		},
		{
			Username:   "user1",
			FullName:   "Alice Johnson",
			Email:      "alice@example.com",
			ProfileImg: "https://randomuser.me/api/portraits/thumb/men/81.jpg",
		},
		{
			Username:   "user2",
			FullName:   "Bob Smith",
			Email:      "bob@example.com",
			ProfileImg: "https://randomuser.me/api/portraits/thumb/men/80.jpg",
		},
		{
			Username:   "user3",
			FullName:   "Charlie Brown",
			Email:      "charlie@example.com",
			ProfileImg: "https://randomuser.me/api/portraits/thumb/men/63.jpg",
		},
	}
}

// Seed inserts the demo accounts, skipping any username already present so
// the command is safe to run repeatedly.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	db, err := repositories.Connect(ctx, r.config.Database, r.logger)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	inserted, err := r.seedUsers(ctx, repositories.NewUserRepository(db), cmd.String("password"))
	if err != nil {
		return err
	}

	return r.writePlain("Seeded %d demo users.\n", inserted)
}

func (r *Runner) seedUsers(ctx context.Context, store seedStore, password string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash demo password: %w", err)
	}

	inserted := 0
	for _, user := range demoUsers() {
		_, err := store.GetByUsername(ctx, user.Username)
		if err == nil {
			r.logger.Info("demo user already exists, skipping", "username", user.Username)
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return inserted, err
		}

		user.Password = string(hash)
		if _, err := store.Add(ctx, user); err != nil {
			return inserted, fmt.Errorf("failed to seed user %s: %w", user.Username, err)
		}
		r.logger.Info("demo user created", "username", user.Username)
		inserted++
	}

	return inserted, nil
}
