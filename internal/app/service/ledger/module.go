package ledger

import "go.uber.org/fx"

// Module exposes the ledger read service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
