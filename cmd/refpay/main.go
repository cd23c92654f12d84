package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/crowdlink/refpay/internal/config"
	"github.com/crowdlink/refpay/internal/migration"
	"github.com/crowdlink/refpay/internal/observability"
	"github.com/crowdlink/refpay/internal/server"
	"github.com/crowdlink/refpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// HTTP surface and domain modules
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
