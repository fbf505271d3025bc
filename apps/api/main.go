package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kograph/internal/cache"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	"github.com/smallbiznis/kograph/internal/observability"
	"github.com/smallbiznis/kograph/internal/server"
	"github.com/smallbiznis/kograph/pkg/db"
	"go.uber.org/fx"
)

// The api binary serves traffic only. Run cmd/kograph once per release to
// apply migrations.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		changefeed.Module,
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
