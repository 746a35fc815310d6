package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations cover postgres deployments. Other
		// dialects, used for local runs and tests, fall back to schema
		// sync from the models.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&directorydomain.SubscriberAccount{},
				&directorydomain.ServicePlan{},
				&ledgerdomain.Posting{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
