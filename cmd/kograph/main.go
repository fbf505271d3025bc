package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kograph/internal/cache"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	"github.com/smallbiznis/kograph/internal/migration"
	"github.com/smallbiznis/kograph/internal/observability"
	"github.com/smallbiznis/kograph/internal/server"
	"github.com/smallbiznis/kograph/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		changefeed.Module,

		// Schema first, then the HTTP surface and every domain behind it.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		panic(err)
	}
	return node
}
