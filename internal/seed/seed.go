package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	"github.com/teamlane/teamlane/internal/auth/password"
)

const (
	defaultAdminEmail    = "admin@teamlane.local"
	defaultAdminPassword = "admin"
)

// EnsureAdminUser creates the bootstrap admin account when it does not exist.
// It is idempotent and safe to run on every start.
func EnsureAdminUser(db *gorm.DB, email, pass string) error {
	if db == nil {
		return errors.New("seed: nil db")
	}
	if email == "" {
		email = defaultAdminEmail
	}
	if pass == "" {
		pass = defaultAdminPassword
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return fmt.Errorf("seed: snowflake node: %w", err)
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.Where("lower(email) = lower(?)", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed: find admin user: %w", err)
		}

		hash, err := password.Hash(pass)
		if err != nil {
			return fmt.Errorf("seed: hash admin password: %w", err)
		}

		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			Name:         "Admin",
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("seed: create admin user: %w", err)
		}
		return nil
	})
}
