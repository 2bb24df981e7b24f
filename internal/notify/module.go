package notify

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
)

// Module provides the Sender and the Dispatcher selected by configuration.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) (Sender, error) {
					return NewSender(&config.Notify, log)
				},
			),
			NewDispatcher,
		),
	)
}

// WorkerModule runs the consuming side of the asynq or kafka transport.
func WorkerModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) (Sender, error) {
					return NewSender(&config.Notify, log)
				},
			),
		),
		fx.Invoke(registerWorker),
	)
}

func NewSender(cfg *config.NotifyConfig, log *zap.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.ProviderMailtrap:
		return NewMailtrapSender(cfg.Mailtrap, nil, log), nil
	case config.ProviderLog:
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}

func NewDispatcher(
	lifecycle fx.Lifecycle,
	cfg *config.AppConfig,
	sender Sender,
	log *zap.Logger,
) (Dispatcher, error) {
	log.Info("notification transport", zap.String("transport", cfg.Notify.Transport))

	switch cfg.Notify.Transport {
	case config.TransportInline:
		return NewInlineDispatcher(sender), nil

	case config.TransportAsynq:
		d, err := NewQueueDispatcher(cfg.Notify.Queue)
		if err != nil {
			return nil, err
		}
		lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return d.Close()
			},
		})
		return d, nil

	case config.TransportKafka:
		d := NewKafkaDispatcher(cfg.Notify.Kafka)
		lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return d.Close()
			},
		})
		return d, nil

	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.Notify.Transport)
	}
}

func registerWorker(
	lifecycle fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.AppConfig,
	sender Sender,
	log *zap.Logger,
) error {
	switch cfg.Notify.Transport {
	case config.TransportAsynq:
		worker, err := NewQueueWorker(cfg.Notify.Queue, sender, log)
		if err != nil {
			return err
		}
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info("starting notification queue worker", zap.String("queue", cfg.Notify.Queue.Name))
				return worker.Start()
			},
			OnStop: func(ctx context.Context) error {
				worker.Shutdown()
				return nil
			},
		})
		return nil

	case config.TransportKafka:
		consumer := NewKafkaConsumer(cfg.Notify.Kafka, sender, log)
		runCtx, cancel := context.WithCancel(context.Background())
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info("starting notification kafka consumer", zap.String("topic", cfg.Notify.Kafka.Topic))
				go func() {
					if err := consumer.Run(runCtx); err != nil {
						log.Error("kafka consumer stopped", zap.Error(err))
						_ = shutdowner.Shutdown(fx.ExitCode(1))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				return consumer.Close()
			},
		})
		return nil

	default:
		return fmt.Errorf("transport %q has no worker; notifications are sent inline", cfg.Notify.Transport)
	}
}
