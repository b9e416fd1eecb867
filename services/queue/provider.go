package queue

import (
	"context"
	"fmt"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/mail"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(ProvideEnqueuer),
)

func ProvideEnqueuer(lc fx.Lifecycle, cfg *config.Config, mailSvc *mail.Service, logger *logging.Service) (Enqueuer, error) {
	switch cfg.Queue.Backend {
	case "memory":
		q := NewMemoryQueue(cfg.Queue.BufferSize, mailSvc, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				q.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return q.Stop(ctx)
			},
		})
		return q, nil
	case "amqp":
		q, err := NewAMQPQueue(cfg.Queue.AMQPURL, cfg.Queue.Name, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				q.Close()
				return nil
			},
		})
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s (supported: memory, amqp)", cfg.Queue.Backend)
	}
}
