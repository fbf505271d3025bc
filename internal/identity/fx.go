package identity

import (
	"github.com/smallbiznis/kograph/internal/identity/repository"
	"github.com/smallbiznis/kograph/internal/identity/service"
	"github.com/smallbiznis/kograph/internal/identity/verifier"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(verifier.NewJWTVerifier),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
