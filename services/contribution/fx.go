package contribution

import (
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(NewService),
)
