package jobs

import "go.uber.org/fx"

// Module provides the runner only; ScheduleModule adds the cron loop.
var Module = fx.Options(
	fx.Provide(NewLocker, NewRunner),
)

var ScheduleModule = fx.Options(
	Module,
	fx.Provide(NewScheduler),
	fx.Invoke(registerScheduler),
)
