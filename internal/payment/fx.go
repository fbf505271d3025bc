package payment

import (
	"github.com/smallbiznis/kograph/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(webhook.NewService),
)
