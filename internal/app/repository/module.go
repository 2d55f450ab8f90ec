package repository

import (
	"go.uber.org/fx"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
)

// Module binds the Postgres implementations to the service-side interfaces.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewLifecycleStore, fx.As(new(lifecycle.Store))),
	),
)
