package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"proxy-fleet/pkg/config"
)

// Sender drains the queues against the Telegram and Discord HTTP APIs. Both
// rate-limit with 429 + retry_after, which the sender honors per message.
type Sender struct {
	client   *http.Client
	settings config.Notifications
	queues   *Queues
	logger   *logrus.Entry
}

func NewSender(settings config.Notifications, queues *Queues, logger *logrus.Entry) *Sender {
	return &Sender{
		client:   &http.Client{Timeout: 10 * time.Second},
		settings: settings,
		queues:   queues,
		logger:   logger,
	}
}

// Flush drains both queues, sending messages one by one. Failed messages are
// dropped after settings.MaxRetries attempts; Flush itself never fails.
func (s *Sender) Flush(ctx context.Context) {
	sent, failed := 0, 0

	for {
		select {
		case msg := <-s.queues.telegram:
			if s.settings.TelegramAPIToken == "" {
				continue
			}
			if s.sendTelegram(ctx, msg) {
				sent++
			} else {
				failed++
			}
			continue
		default:
		}
		break
	}

	for {
		select {
		case msg := <-s.queues.discord:
			if s.settings.DiscordWebhook == "" && msg.Webhook == "" {
				continue
			}
			if s.sendDiscord(ctx, msg) {
				sent++
			} else {
				failed++
			}
			continue
		default:
		}
		break
	}

	if sent > 0 || failed > 0 {
		s.logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("notification queues flushed")
	}
}

func (s *Sender) sendTelegram(ctx context.Context, msg TelegramMessage) bool {
	url := "https://api.telegram.org/bot" + s.settings.TelegramAPIToken + "/sendMessage"
	chatID := msg.ChatID
	if chatID == 0 {
		chatID = s.settings.TelegramChatID
	}
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"parse_mode": "HTML",
		"text":       msg.Text,
	}

	for try := 0; try < s.settings.MaxRetries; try++ {
		status, body, err := s.post(ctx, url, payload)
		if err != nil {
			s.logger.WithError(err).Error("telegram send failed")
			return false
		}
		if status == http.StatusOK {
			return true
		}
		if status == http.StatusTooManyRequests {
			wait := retryAfter(body, "parameters", "retry_after")
			s.logger.WithField("wait", wait).Warn("telegram rate limit hit")
			if !sleep(ctx, wait) {
				return false
			}
			continue
		}
		s.logger.WithField("status", status).Error("telegram send rejected")
		return false
	}
	s.logger.WithField("retries", s.settings.MaxRetries).Error("telegram send gave up")
	return false
}

func (s *Sender) sendDiscord(ctx context.Context, msg DiscordMessage) bool {
	webhook := msg.Webhook
	if webhook == "" {
		webhook = s.settings.DiscordWebhook
	}
	if webhook == "" {
		return false
	}

	for try := 0; try < s.settings.MaxRetries; try++ {
		status, body, err := s.post(ctx, webhook, msg.Payload)
		if err != nil {
			s.logger.WithError(err).Error("discord webhook failed")
			return false
		}
		if status == http.StatusOK || status == http.StatusNoContent {
			return true
		}
		if status == http.StatusTooManyRequests {
			wait := retryAfter(body, "retry_after")
			s.logger.WithField("wait", wait).Warn("discord rate limit hit")
			if !sleep(ctx, wait) {
				return false
			}
			continue
		}
		s.logger.WithField("status", status).Error("discord webhook rejected")
		return false
	}
	s.logger.WithField("retries", s.settings.MaxRetries).Error("discord webhook gave up")
	return false
}

func (s *Sender) post(ctx context.Context, url string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	return resp.StatusCode, body.Bytes(), nil
}

// retryAfter digs the retry_after hint out of an API error body, following
// the given key path. Defaults to half a second.
func retryAfter(body []byte, path ...string) time.Duration {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return 500 * time.Millisecond
	}
	cur := doc
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return 500 * time.Millisecond
		}
		if i == len(path)-1 {
			switch n := v.(type) {
			case float64:
				return time.Duration(n * float64(time.Second))
			case string:
				if sec, err := strconv.ParseFloat(n, 64); err == nil {
					return time.Duration(sec * float64(time.Second))
				}
			}
			return 500 * time.Millisecond
		}
		next, ok := v.(map[string]interface{})
		if !ok {
			return 500 * time.Millisecond
		}
		cur = next
	}
	return 500 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// NodeAlert formats a health transition message for operators.
func NodeAlert(nodeID int64, from, to string) string {
	return fmt.Sprintf("node <b>#%d</b>: %s -> %s", nodeID, from, to)
}

// DiscordAlert builds the webhook payload for a health transition.
func DiscordAlert(nodeID int64, from, to string) map[string]interface{} {
	return map[string]interface{}{
		"content": fmt.Sprintf("node #%d: %s -> %s", nodeID, from, to),
	}
}
