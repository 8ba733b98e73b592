package main

import (
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/audit"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/auth"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/clock"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/config"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/events"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/migration"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/scheduler"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/seed"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/server"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.SeedDemoData {
				return seed.EnsureDemoData(conn)
			}
			return nil
		}),
		auth.Module,
		events.Module,
		audit.Module,
		directory.Module,
		notification.Module,
		messaging.Module,
		invoice.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
