package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqttcommon "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/mqtt"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]mqttcommon.MessageHandler
	unsubscribed []string
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, handler mqttcommon.MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = map[string]mqttcommon.MessageHandler{}
	}
	s.handlers[topic] = handler
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topics ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = append(s.unsubscribed, topics...)
	return nil
}

func (s *fakeSubscriber) handler(topic string) mqttcommon.MessageHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[topic]
}

type recordedCall struct {
	code string
	req  service.RecordSampleRequest
}

type fakeRecorder struct {
	calls []recordedCall
	err   error
}

func (r *fakeRecorder) RecordSampleByCode(_ context.Context, code string, req service.RecordSampleRequest) (*service.IngestResult, error) {
	r.calls = append(r.calls, recordedCall{code: code, req: req})
	if r.err != nil {
		return nil, r.err
	}
	return &service.IngestResult{Sample: &domain.Sample{Value: req.Value}}, nil
}

const testTopic = "monitor/points/+/data"

func startConsumer(t *testing.T, rec *fakeRecorder) (*fakeSubscriber, *MQTTConsumer) {
	t.Helper()
	sub := &fakeSubscriber{}
	c, err := NewMQTTConsumer(sub, rec, testTopic, 1, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	require.Eventually(t, func() bool { return sub.handler(testTopic) != nil }, time.Second, time.Millisecond)

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return sub, c
}

func TestNewMQTTConsumer_TopicValidation(t *testing.T) {
	_, err := NewMQTTConsumer(&fakeSubscriber{}, &fakeRecorder{}, "monitor/points/data", 1, zap.NewNop())
	assert.Error(t, err)

	_, err = NewMQTTConsumer(&fakeSubscriber{}, &fakeRecorder{}, "monitor/+/+/data", 1, zap.NewNop())
	assert.Error(t, err)
}

func TestHandleMessage_RecordsByPointCode(t *testing.T) {
	rec := &fakeRecorder{}
	sub, _ := startConsumer(t, rec)

	err := sub.handler(testTopic)("monitor/points/TEMP-001/data", []byte(`{"value": 85.5, "timestamp": 1714550400}`))

	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	call := rec.calls[0]
	assert.Equal(t, "TEMP-001", call.code)
	assert.Equal(t, 85.5, call.req.Value)
	assert.Equal(t, domain.SourceAuto, call.req.Source)
	require.NotNil(t, call.req.CollectionTime)
	assert.Equal(t, int64(1714550400), call.req.CollectionTime.Unix())
}

func TestHandleMessage_MillisecondTimestamp(t *testing.T) {
	rec := &fakeRecorder{}
	sub, _ := startConsumer(t, rec)

	require.NoError(t, sub.handler(testTopic)("monitor/points/P1/data", []byte(`{"value": 1, "timestamp": 1714550400123}`)))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, int64(1714550400123), rec.calls[0].req.CollectionTime.UnixMilli())
}

func TestHandleMessage_Rejects(t *testing.T) {
	rec := &fakeRecorder{}
	sub, _ := startConsumer(t, rec)
	handle := sub.handler(testTopic)

	assert.Error(t, handle("monitor/points/P1/data", []byte(`not json`)))
	assert.Error(t, handle("monitor/points/P1/data", []byte(`{"timestamp": 1}`)))
	assert.Error(t, handle("monitor", []byte(`{"value": 1}`)))
	assert.Empty(t, rec.calls)

	rec.err = domain.ErrNotFound
	err := handle("monitor/points/UNKNOWN/data", []byte(`{"value": 1}`))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStop_Unsubscribes(t *testing.T) {
	sub, c := startConsumer(t, &fakeRecorder{})

	require.NoError(t, c.Stop())
	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, []string{testTopic}, sub.unsubscribed)
}
