package provider

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/types"
)

func NewRegistry(cfg *config.Config, log *zap.SugaredLogger) Registry {
	return Registry{
		types.PaymentProviderHostedGateway: NewHostedGateway(cfg.HostedGateway, log),
		types.PaymentProviderCardProcessor: NewCardProcessor(cfg.CardProcessor, log),
		types.PaymentProviderManual:        NewManual(),
	}
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
)
