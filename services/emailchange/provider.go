package emailchange

import (
	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/queue"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideEmailChangeService(cfg *config.Config, db *gorm.DB, enqueuer queue.Enqueuer, logger *logging.Service) *Service {
	return NewService(cfg, db, enqueuer, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideEmailChangeService),
)
