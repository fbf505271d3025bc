package moderation

import (
	"github.com/smallbiznis/kograph/internal/moderation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("moderation.service",
	fx.Provide(service.NewService),
)
