package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcomeMessage_EscapesUsername(t *testing.T) {
	msg := WelcomeMessage("<b>mallory</b>", "m@x.io")

	assert.Equal(t, "m@x.io", msg.ToEmail)
	assert.Equal(t, "Welcome to Votronix!", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;b&gt;mallory&lt;/b&gt;")
	assert.NotContains(t, msg.HTML, "<b>mallory")
}

func TestBrevoSender_Send(t *testing.T) {
	var got brevoPayload
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<1@brevo>"}`))
	}))
	defer srv.Close()

	s := NewBrevoSender("key-123", "Votronix", "no-reply@votronix.com")
	s.endpoint = srv.URL

	err := s.Send(context.Background(), WelcomeMessage("alice", "alice@x.io"))
	require.NoError(t, err)

	assert.Equal(t, "key-123", apiKey)
	assert.Equal(t, "no-reply@votronix.com", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "alice@x.io", got.To[0].Email)
	assert.Equal(t, "Welcome to Votronix!", got.Subject)
	assert.Contains(t, got.HTMLContent, "Hello alice")
}

func TestBrevoSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	s := NewBrevoSender("bad", "Votronix", "no-reply@votronix.com")
	s.endpoint = srv.URL

	err := s.Send(context.Background(), WelcomeMessage("a", "a@x.io"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []Message
	err   error
	block chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcher_EnqueueBeforeStart(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := NewDispatcher(Config{Logger: logger}, &recordingSender{})

	require.ErrorIs(t, d.Enqueue(Message{}), ErrDispatcherStopped)
}

func TestDispatcher_DeliversAndDrainsOnShutdown(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sender := &recordingSender{}
	d := NewDispatcher(Config{MaxConcurrent: 3, Logger: logger}, sender)
	require.NoError(t, d.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(WelcomeMessage("u", "u@x.io")))
	}
	d.Shutdown()

	assert.Equal(t, 10, sender.count())
	require.ErrorIs(t, d.Enqueue(Message{}), ErrDispatcherStopped)
}

func TestDispatcher_QueueFull(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(Config{MaxConcurrent: 1, MaxPending: 2, Logger: logger}, sender)
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Enqueue(Message{ToEmail: "1@x.io"}))
	require.NoError(t, d.Enqueue(Message{ToEmail: "2@x.io"}))
	require.ErrorIs(t, d.Enqueue(Message{ToEmail: "3@x.io"}), ErrQueueFull)

	close(sender.block)
	d.Shutdown()
	assert.Equal(t, 2, sender.count())
}

func TestDispatcher_SendFailureIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sender := &recordingSender{err: errors.New("provider down")}
	d := NewDispatcher(Config{Logger: logger}, sender)
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Enqueue(WelcomeMessage("a", "a@x.io")))
	d.Shutdown()

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["to"] == "a@x.io" {
			warned = true
			assert.Contains(t, e.Message, "provider down")
		}
	}
	assert.True(t, warned, "expected a warning for the failed send")
}

func TestDispatcher_SendTimeout(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(Config{SendTimeout: 20 * time.Millisecond, Logger: logger}, sender)
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Enqueue(WelcomeMessage("slow", "slow@x.io")))
	d.Shutdown()

	assert.Equal(t, 0, sender.count())
	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLogSender(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	require.NoError(t, LogSender{Logger: logger}.Send(context.Background(), WelcomeMessage("a", "a@x.io")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "a@x.io", hook.LastEntry().Data["to"])
}
