package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/notify"
	"github.com/eek-site/eek-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MailTask is one internal mail delivery queued for retry. Only the
// internal admin mailbox is retried; customer and supplier messages stay
// one-shot by contract.
type MailTask struct {
	ID         string    `json:"id"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	HTML       bool      `json:"html"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// MailWorker drains the retry queue and re-sends failed internal mail with
// exponential backoff, dead-lettering after max retries. Redis is the
// durable queue; an in-memory channel covers the window when redis pushes
// fail.
type MailWorker struct {
	mailer       notify.Mailer
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan MailTask
	queueKey     string
	deadLetter   string
	pollInterval time.Duration
	logger       *zerolog.Logger
}

func NewMailWorker(mailer notify.Mailer, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *MailWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &MailWorker{
		mailer:       mailer,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan MailTask, models.WorkerQueueSize),
		queueKey:     repository.NotifyQueueKey(),
		deadLetter:   repository.NotifyDeadLetterKey(),
		pollInterval: 2 * time.Second,
		logger:       logger,
	}
}

// SetPollInterval overrides how often the worker checks the Redis queue
// when the local channel is idle.
func (w *MailWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// EnqueueMail schedules a failed delivery for retry. Satisfies
// notify.RetryEnqueuer.
func (w *MailWorker) EnqueueMail(ctx context.Context, to, subject, body string, html bool) error {
	if to == "" {
		return errors.New("recipient is required")
	}

	task := MailTask{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	}

	// Redis first for durability, memory queue as fallback.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("mail retry queue is full, task %s dropped", task.ID)
	}
}

// Start runs the drain loop until ctx is done.
func (w *MailWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mail retry worker started")
	defer w.logger.Info().Msg("mail retry worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if task, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, task)
			continue
		}

		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *MailWorker) tryLocalQueue() (MailTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return MailTask{}, false
	}
}

func (w *MailWorker) tryRedis(ctx context.Context) (MailTask, bool) {
	if w.redis == nil {
		return MailTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return MailTask{}, false
		}
		w.logger.Warn().Err(err).Msg("mail queue BRPOP error")
		return MailTask{}, false
	}
	if len(res) != 2 {
		return MailTask{}, false
	}

	var task MailTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("malformed mail task dropped to deadletter")
		w.pushDeadLetter(ctx, []byte(res[1]))
		return MailTask{}, false
	}
	return task, true
}

func (w *MailWorker) processTask(ctx context.Context, task MailTask) {
	if w.mailer == nil {
		w.logger.Info().Str("task_id", task.ID).Str("to", task.To).Msg("mail demo mode, dropping retry task")
		return
	}

	err := w.mailer.Send(ctx, task.To, task.Subject, task.Body, task.HTML)
	if err == nil {
		w.logger.Info().Str("task_id", task.ID).Int("attempt", task.RetryCount+1).Msg("retried mail delivered")
		return
	}

	task.RetryCount++
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("mail retries exhausted, dead-lettering")
		if raw, mErr := json.Marshal(task); mErr == nil {
			w.pushDeadLetter(ctx, raw)
		}
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(err).Str("task_id", task.ID).Dur("next_delay", delay).Msg("mail retry failed, rescheduling")

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if w.redis != nil {
		if pErr := w.pushRedis(ctx, task); pErr == nil {
			return
		}
	}
	select {
	case w.queue <- task:
	default:
		w.logger.Error().Str("task_id", task.ID).Msg("retry queue full, task lost")
	}
}

func (w *MailWorker) pushRedis(ctx context.Context, task MailTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.queueKey, data).Err()
}

func (w *MailWorker) pushDeadLetter(ctx context.Context, raw []byte) {
	if w.redis == nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetter, raw).Err(); err != nil {
		w.logger.Error().Err(err).Msg("deadletter push failed")
	}
}
