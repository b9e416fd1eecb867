package loginnotify

import (
	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/authevents"
	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/queue"
	"go.uber.org/fx"
)

func ProvideLoginNotifyService(cfg *config.Config, enqueuer queue.Enqueuer, emailChange *emailchange.Service, logger *logging.Service) *Service {
	return NewService(cfg, enqueuer, emailChange, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideLoginNotifyService),
	fx.Invoke(func(dispatcher *authevents.Dispatcher, service *Service) {
		dispatcher.OnLogin(service.HandleLogin)
	}),
)
