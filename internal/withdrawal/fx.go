package withdrawal

import (
	"github.com/smallbiznis/kograph/internal/withdrawal/repository"
	"github.com/smallbiznis/kograph/internal/withdrawal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
