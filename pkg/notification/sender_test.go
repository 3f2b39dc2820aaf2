package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-fleet/pkg/config"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSender_DiscordFlush(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	queues := NewQueues()
	queues.EnqueueDiscord(DiscordMessage{Payload: map[string]interface{}{"content": "node down"}, Webhook: srv.URL})
	queues.EnqueueDiscord(DiscordMessage{Payload: map[string]interface{}{"content": "node up"}, Webhook: srv.URL})

	s := NewSender(config.Notifications{MaxRetries: 3}, queues, testLogger())
	s.Flush(context.Background())

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	select {
	case <-queues.discord:
		t.Fatal("queue should be drained")
	default:
	}
}

func TestSender_DiscordRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 0.01}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	queues := NewQueues()
	queues.EnqueueDiscord(DiscordMessage{Payload: map[string]interface{}{"content": "x"}, Webhook: srv.URL})

	s := NewSender(config.Notifications{MaxRetries: 3}, queues, testLogger())
	s.Flush(context.Background())

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueues_EnqueueNeverBlocks(t *testing.T) {
	queues := NewQueues()
	for i := 0; i < queueDepth*2; i++ {
		queues.EnqueueTelegram(TelegramMessage{Text: "overflow"})
	}
	require.Len(t, queues.telegram, queueDepth)
}

func TestSender_DiscordDisabledDrainsQueue(t *testing.T) {
	queues := NewQueues()
	queues.EnqueueDiscord(DiscordMessage{Payload: DiscordAlert(1, "healthy", "broken")})

	s := NewSender(config.Notifications{MaxRetries: 1}, queues, testLogger())
	s.Flush(context.Background())

	assert.Empty(t, queues.discord)
}

func TestSender_TelegramDisabledDrainsQueue(t *testing.T) {
	queues := NewQueues()
	queues.EnqueueTelegram(TelegramMessage{Text: "ignored"})

	s := NewSender(config.Notifications{MaxRetries: 1}, queues, testLogger())
	s.Flush(context.Background())

	assert.Empty(t, queues.telegram)
}
