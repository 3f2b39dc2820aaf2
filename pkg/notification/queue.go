// Package notification queues fleet alerts and delivers them to Telegram
// and Discord. Delivery is decoupled from the event source: producers only
// enqueue, a periodic flusher drains.
package notification

// TelegramMessage is one queued Telegram notification.
type TelegramMessage struct {
	Text   string
	ChatID int64
}

// DiscordMessage is one queued Discord webhook payload.
type DiscordMessage struct {
	Payload map[string]interface{}
	Webhook string
}

const queueDepth = 256

// Queues buffers pending notifications. Enqueue never blocks: when a queue
// is full the oldest pending message is dropped in favor of the new one.
type Queues struct {
	telegram chan TelegramMessage
	discord  chan DiscordMessage
}

func NewQueues() *Queues {
	return &Queues{
		telegram: make(chan TelegramMessage, queueDepth),
		discord:  make(chan DiscordMessage, queueDepth),
	}
}

// Telegram exposes the pending Telegram queue for draining and inspection.
func (q *Queues) Telegram() <-chan TelegramMessage { return q.telegram }

// Discord exposes the pending Discord queue.
func (q *Queues) Discord() <-chan DiscordMessage { return q.discord }

func (q *Queues) EnqueueTelegram(msg TelegramMessage) {
	for {
		select {
		case q.telegram <- msg:
			return
		default:
			select {
			case <-q.telegram:
			default:
			}
		}
	}
}

func (q *Queues) EnqueueDiscord(msg DiscordMessage) {
	for {
		select {
		case q.discord <- msg:
			return
		default:
			select {
			case <-q.discord:
			default:
			}
		}
	}
}
