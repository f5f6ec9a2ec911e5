package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
	"github.com/pktdms/docgate/internal/auth/password"
	"github.com/pktdms/docgate/internal/config"
	"gorm.io/gorm"
)

// EnsureDefaultAdmin seeds the default administrator for startup bootstrap.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" || cfg.AdminPassword == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).
			Where("username = ?", username).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			Username:     username,
			PasswordHash: hashed,
			Role:         authdomain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
