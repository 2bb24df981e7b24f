package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
)

const TaskTypeSend = "notify:send"

// QueueDispatcher enqueues messages as asynq tasks; delivery and retries
// happen in QueueWorker.
type QueueDispatcher struct {
	client   *asynq.Client
	rdb      *redis.Client
	queue    string
	maxRetry int
}

func NewQueueDispatcher(cfg config.QueueConfig) (*QueueDispatcher, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &QueueDispatcher{
		client:   asynq.NewClient(opt),
		rdb:      redis.NewClient(redisOpt),
		queue:    cfg.Name,
		maxRetry: cfg.MaxRetry,
	}, nil
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	task, err := newSendTask(msg)
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.MaxRetry(d.maxRetry))
	return err
}

func (d *QueueDispatcher) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

func (d *QueueDispatcher) Close() error {
	return errors.Join(d.client.Close(), d.rdb.Close())
}

func newSendTask(msg Message) (*asynq.Task, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSend, body), nil
}

// QueueWorker consumes notify:send tasks and hands them to a Sender.
type QueueWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    *zap.Logger
}

func NewQueueWorker(cfg config.QueueConfig, sender Sender, log *zap.Logger) (*QueueWorker, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			cfg.Name: 1,
		},
	})

	w := &QueueWorker{
		server: server,
		mux:    asynq.NewServeMux(),
		sender: sender,
		log:    log,
	}
	w.mux.HandleFunc(TaskTypeSend, w.HandleTask)
	return w, nil
}

// Start runs the worker in the background.
func (w *QueueWorker) Start() error {
	return w.server.Start(w.mux)
}

func (w *QueueWorker) Shutdown() {
	w.server.Shutdown()
}

// HandleTask delivers one message. Malformed payloads are not retried.
func (w *QueueWorker) HandleTask(ctx context.Context, task *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("invalid notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.log.Warn("notification delivery failed, will retry",
			zap.String("template", string(msg.Template)),
			zap.Error(err))
		return err
	}
	return nil
}
