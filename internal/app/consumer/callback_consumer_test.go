package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/mq/lmstfy"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeQueue struct {
	mu      sync.Mutex
	pending []*lmstfy.Message
	acked   []string
}

func (q *fakeQueue) Consume(queue string, timeout, ttr time.Duration) (*lmstfy.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *fakeQueue) Ack(queue, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *fakeQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type fakeHandler struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (h *fakeHandler) HandleCallback(ctx context.Context, cb *model.ClassifyCallback) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, cb.AnalysisID)
	if h.fail[cb.AnalysisID] {
		return errors.New("store unavailable")
	}
	return nil
}

func newConsumer(q Queue, h CallbackHandler) *CallbackConsumer {
	return NewCallbackConsumer(q, h, Config{
		QueueName:    "ecg_classify_callback",
		Timeout:      time.Millisecond,
		TTR:          time.Second,
		PollInterval: time.Millisecond,
	}, logger.NewNop())
}

func TestConsumeOne(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{pending: []*lmstfy.Message{
		{ID: "j1", Data: []byte(`{"analysis_id":"a1","status":"SUCCESS","predictions":{"AF":0.1}}`)},
		{ID: "j2", Data: []byte(`not json`)},
		{ID: "j3", Data: []byte(`{"analysis_id":"a3","status":"FAILED"}`)},
		{ID: "j4", Data: []byte(`{"analysis_id":"a4","status":"MAYBE"}`)},
	}}
	h := &fakeHandler{fail: map[string]bool{"a3": true}}
	c := newConsumer(q, h)

	require.NoError(t, c.consumeOne(ctx))
	assert.Error(t, c.consumeOne(ctx), "malformed message")
	assert.Error(t, c.consumeOne(ctx), "handler failure")
	assert.Error(t, c.consumeOne(ctx), "unknown status")
	require.NoError(t, c.consumeOne(ctx), "empty queue")

	// 处理失败的 j3 不确认
	assert.Equal(t, []string{"j1", "j2", "j4"}, q.ackedIDs())
	assert.Equal(t, []string{"a1", "a3"}, h.seen)
}

func TestStart_StopsOnCancel(t *testing.T) {
	q := &fakeQueue{pending: []*lmstfy.Message{
		{ID: "j1", Data: []byte(`{"analysis_id":"a1","status":"FAILED"}`)},
	}}
	c := newConsumer(q, &fakeHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(q.ackedIDs()) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
