package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/vpnbill/internal/billstore"
	"github.com/smallbiznis/vpnbill/internal/config"
	"github.com/smallbiznis/vpnbill/internal/directory"
	"github.com/smallbiznis/vpnbill/internal/ledger"
	"github.com/smallbiznis/vpnbill/internal/migration"
	"github.com/smallbiznis/vpnbill/internal/observability"
	"github.com/smallbiznis/vpnbill/internal/providers/email"
	"github.com/smallbiznis/vpnbill/internal/reconcile"
	"github.com/smallbiznis/vpnbill/internal/server"
	"github.com/smallbiznis/vpnbill/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// Functional domains
		directory.Module,
		ledger.Module,
		email.Module,
		billstore.Module,
		reconcile.Module,
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
