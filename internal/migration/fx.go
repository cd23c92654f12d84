package migration

import (
	commissiondomain "github.com/crowdlink/refpay/internal/commission/domain"
	"github.com/crowdlink/refpay/internal/config"
	userdomain "github.com/crowdlink/refpay/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite/mysql dev setups: schema comes straight from the models.
			return conn.AutoMigrate(
				&userdomain.User{},
				&commissiondomain.Earning{},
				&commissiondomain.Transaction{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
