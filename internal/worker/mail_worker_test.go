package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMailer struct {
	mu       sync.Mutex
	failures int
	sent     int
}

func (m *countingMailer) Send(ctx context.Context, to, subject, body string, html bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("send failed")
	}
	m.sent++
	return nil
}

func newTestWorker(t *testing.T, mailer *countingMailer) (*miniredis.Miniredis, *redis.Client, *MailWorker) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.Nop()
	w := NewMailWorker(mailer, client, RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}, &logger)
	return s, client, w
}

func TestEnqueueMailPushesToRedis(t *testing.T) {
	s, _, w := newTestWorker(t, &countingMailer{})

	require.NoError(t, w.EnqueueMail(context.Background(), "office@example.nz", "subj", "body", true))

	raw, err := s.List("notify:queue")
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var task MailTask
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &task))
	assert.Equal(t, "office@example.nz", task.To)
	assert.True(t, task.HTML)
	assert.NotEmpty(t, task.ID)
}

func TestEnqueueMailRequiresRecipient(t *testing.T) {
	_, _, w := newTestWorker(t, &countingMailer{})
	assert.Error(t, w.EnqueueMail(context.Background(), "", "s", "b", false))
}

func TestProcessTaskDeliversOnFirstTry(t *testing.T) {
	mailer := &countingMailer{}
	_, _, w := newTestWorker(t, mailer)

	w.processTask(context.Background(), MailTask{ID: "t1", To: "a@b.nz"})
	assert.Equal(t, 1, mailer.sent)
}

func TestProcessTaskReschedulesOnFailure(t *testing.T) {
	mailer := &countingMailer{failures: 1}
	s, _, w := newTestWorker(t, mailer)

	w.processTask(context.Background(), MailTask{ID: "t2", To: "a@b.nz"})

	// Task went back on the queue with a bumped retry count.
	raw, err := s.List("notify:queue")
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var task MailTask
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &task))
	assert.Equal(t, 1, task.RetryCount)
}

func TestProcessTaskDeadLettersAfterMaxRetries(t *testing.T) {
	mailer := &countingMailer{failures: 10}
	s, _, w := newTestWorker(t, mailer)

	w.processTask(context.Background(), MailTask{ID: "t3", To: "a@b.nz", RetryCount: 2})

	dead, err := s.List("notify:deadletter")
	require.NoError(t, err)
	require.Len(t, dead, 1)

	queued, _ := s.List("notify:queue")
	assert.Empty(t, queued)
}

func TestStartDrainsQueue(t *testing.T) {
	mailer := &countingMailer{}
	_, _, w := newTestWorker(t, mailer)
	w.pollInterval = 10 * time.Millisecond

	require.NoError(t, w.EnqueueMail(context.Background(), "a@b.nz", "s", "b", false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return mailer.sent == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 10*time.Second, p.NextDelay(10)) // clamped
}
