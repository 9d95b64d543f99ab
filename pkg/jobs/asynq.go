package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqConfig tunes the Redis backed driver.
type AsynqConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	MaxRetries    int
	Queue         string
	Timeout       time.Duration
	Logger        *zap.Logger
}

func (c AsynqConfig) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// AsynqDispatcher enqueues jobs as asynq tasks whose payload is the job ID.
type AsynqDispatcher struct {
	client     *asynq.Client
	queue      string
	maxRetries int
	timeout    time.Duration
}

// NewAsynqDispatcher builds a dispatcher on its own Redis client.
func NewAsynqDispatcher(cfg AsynqConfig) *AsynqDispatcher {
	if cfg.Queue == "" {
		cfg.Queue = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &AsynqDispatcher{
		client:     asynq.NewClient(cfg.redisOpt()),
		queue:      cfg.Queue,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
	}
}

// Enqueue implements Dispatcher.
func (d *AsynqDispatcher) Enqueue(job Job) error {
	task := asynq.NewTask(job.Type, []byte(job.ID))
	_, err := d.client.Enqueue(task,
		asynq.Queue(d.queue),
		asynq.MaxRetry(d.maxRetries),
		asynq.Timeout(d.timeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", job.Type, job.ID, err)
	}
	return nil
}

// Close releases the Redis client.
func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

// AsynqWorker consumes asynq tasks and hands them to Handlers registered by task type.
type AsynqWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	onGiveUp GiveUpFunc
	logger   *zap.Logger
}

// NewAsynqWorker builds the consuming side of the driver.
func NewAsynqWorker(cfg AsynqConfig, onGiveUp GiveUpFunc) *AsynqWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.Queue == "" {
		cfg.Queue = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	w := &AsynqWorker{mux: asynq.NewServeMux(), onGiveUp: onGiveUp, logger: cfg.Logger}
	w.server = asynq.NewServer(cfg.redisOpt(), asynq.Config{
		Concurrency:  cfg.Concurrency,
		Queues:       map[string]int{cfg.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(w.handleError),
	})
	return w
}

// Handle registers h for tasks of the given type.
func (w *AsynqWorker) Handle(taskType string, h Handler) {
	w.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, taskToJob(ctx, t))
	})
}

// Start begins processing in the background.
func (w *AsynqWorker) Start() error {
	return w.server.Start(w.mux)
}

// Stop waits for in-flight tasks and shuts the server down.
func (w *AsynqWorker) Stop() {
	w.server.Shutdown()
}

func (w *AsynqWorker) handleError(ctx context.Context, t *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	w.logger.Warn("asynq task failed", zap.String("type", t.Type()), zap.String("job_id", string(t.Payload())), zap.Int("retried", retried), zap.Error(err))
	if retried >= maxRetry && w.onGiveUp != nil {
		w.onGiveUp(ctx, taskToJob(ctx, t), err)
	}
}

func taskToJob(ctx context.Context, t *asynq.Task) Job {
	attempt, _ := asynq.GetRetryCount(ctx)
	return Job{ID: string(t.Payload()), Type: t.Type(), Attempt: attempt}
}
