package changefeed

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/kograph/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("changefeed",
	fx.Provide(NewHub),
	fx.Provide(NewNotifier),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Hub       *Hub
	Redis     *redis.Client `optional:"true"`
	Log       *zap.Logger
}

// NewNotifier returns the Redis relay when cross-instance fan-out is enabled
// and the bare hub otherwise.
func NewNotifier(p Params) Notifier {
	if !p.Config.ChangeFeed.RedisRelay || p.Redis == nil {
		return p.Hub
	}

	relay := NewRedisRelay(p.Redis, p.Config.ChangeFeed.Channel, p.Hub, p.Log)
	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go relay.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return relay
}

// Noop discards changes. Used where no subscriber can exist.
type Noop struct{}

func (Noop) Notify(context.Context, Change) {}
