// Package config loads controller settings from the environment and an
// optional yaml file for notification channels.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Notifications configures the outbound alert channels. Empty fields disable
// the corresponding channel.
type Notifications struct {
	TelegramAPIToken string `yaml:"telegram_api_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	DiscordWebhook   string `yaml:"discord_webhook"`
	MaxRetries       int    `yaml:"max_retries"`
}

// Config is everything the controller needs at startup that is not a CLI
// flag: database access comes from pkg/db's own env handling.
type Config struct {
	JournalPath      string
	UserSyncInterval time.Duration
	HealthInterval   time.Duration
	NotifyInterval   time.Duration
	NodeStopTimeout  time.Duration
	Notifications    Notifications
}

// Load reads the environment (after a best-effort .env load) and, when
// CONFIG_FILE points at a yaml file, the notification settings from it.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		JournalPath:      getenv("JOURNAL_PATH", "/var/lib/proxy-fleet/journal.db"),
		UserSyncInterval: getDuration("USER_SYNC_INTERVAL", 5*time.Minute),
		HealthInterval:   getDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		NotifyInterval:   getDuration("NOTIFY_FLUSH_INTERVAL", 30*time.Second),
		NodeStopTimeout:  getDuration("NODE_STOP_TIMEOUT", 10*time.Second),
		Notifications:    Notifications{MaxRetries: 3},
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var file struct {
		Notifications Notifications `yaml:"notifications"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, err
	}
	if file.Notifications.MaxRetries <= 0 {
		file.Notifications.MaxRetries = 3
	}
	cfg.Notifications = file.Notifications
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
