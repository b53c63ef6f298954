package callback

import (
	"go.uber.org/fx"

	"github.com/tierbill/tierbill/internal/app/service/callbacklog"
)

var Module = fx.Options(
	fx.Provide(
		func(s *callbacklog.Service) Sink { return s },
		NewHandler,
	),
)
