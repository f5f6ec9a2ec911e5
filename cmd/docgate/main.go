package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pktdms/docgate/internal/auth"
	"github.com/pktdms/docgate/internal/config"
	"github.com/pktdms/docgate/internal/document"
	"github.com/pktdms/docgate/internal/metrics"
	"github.com/pktdms/docgate/internal/migration"
	"github.com/pktdms/docgate/internal/server"
	"github.com/pktdms/docgate/internal/workflow"
	"github.com/pktdms/docgate/pkg/db"
	"github.com/pktdms/docgate/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		metrics.Module,
		migration.Module,

		// Functional domains
		auth.Module,
		workflow.Module,
		document.Module,

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
