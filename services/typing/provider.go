package typing

import (
	"github.com/harborchat/harborchat/services/logging"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(func(logger *logging.Service) Dispatcher {
		return NewDispatcher(logger)
	}),
)
