package grant

import (
	"go.uber.org/fx"
)

var Module = fx.Module("grant.service",
	fx.Provide(NewService),
)
