package notify

import (
	"log/slog"

	"github.com/donaldgifford/pricely/internal/config"
)

// FromConfig builds a dispatcher from the enabled channels. With nothing
// enabled it returns a NoOpDispatcher. The returned cleanup func closes any
// broker connection and is never nil.
func FromConfig(cfg config.NotificationsConfig, log *slog.Logger) (Dispatcher, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	var channels []Channel
	cleanup := func() {}

	if email := EmailFromConfig(cfg); email != nil {
		channels = append(channels, Channel{Name: "email", Dispatcher: email})
	}
	if cfg.Discord.Enabled {
		channels = append(channels, Channel{
			Name:       "discord",
			Dispatcher: NewDiscordDispatcher(cfg.Discord.WebhookURL),
		})
	}
	if cfg.Queue.Enabled {
		q, err := DialQueue(cfg.Queue.URL, cfg.Queue.Queue)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := q.Close(); err != nil {
				log.Warn("closing queue", "error", err)
			}
		}
		channels = append(channels, Channel{Name: "queue", Dispatcher: q})
	}

	if len(channels) == 0 {
		log.Info("no notification channel configured, alerts are stored only")
		return NewNoOpDispatcher(log), cleanup, nil
	}

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name)
	}
	log.Info("notification channels enabled", "channels", names)
	return NewMultiDispatcher(log, channels...), cleanup, nil
}

// EmailFromConfig returns the SMTP dispatcher alone, or nil when email is
// disabled. Account mail addressed to one user goes through it rather than
// the shared alert channels.
func EmailFromConfig(cfg config.NotificationsConfig) Dispatcher {
	if !cfg.Email.Enabled {
		return nil
	}
	return NewEmailDispatcher(
		cfg.Email.Host, cfg.Email.Port,
		cfg.Email.Username, cfg.Email.Password, cfg.Email.From,
	)
}
