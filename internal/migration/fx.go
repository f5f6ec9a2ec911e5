package migration

import (
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
	"github.com/pktdms/docgate/internal/config"
	documentdomain "github.com/pktdms/docgate/internal/document/domain"
	"github.com/pktdms/docgate/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// SQL migrations target postgres; dev databases use the model schema.
			if err := conn.AutoMigrate(&authdomain.User{}, &documentdomain.Document{}); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultAdmin(conn, cfg)
	}),
)
