package lifecycle

import "go.uber.org/fx"

// Module exposes the lifecycle engine via Fx. It expects a Store and a Notifier.
var Module = fx.Options(
	fx.Provide(NewService),
)
