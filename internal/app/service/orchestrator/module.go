package orchestrator

import (
	"go.uber.org/fx"

	"github.com/tierbill/tierbill/internal/app/service/subscription"
	"github.com/tierbill/tierbill/internal/app/service/users"
)

var Module = fx.Options(
	fx.Provide(
		func(s *users.Store) UserStore { return s },
		func(s *subscription.Store) FactStore { return s },
		NewService,
		NewReconciler,
	),
)
