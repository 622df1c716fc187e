package notify

import (
	"fmt"

	"contractor-payouts/config"
	"contractor-payouts/internal/core/ports"

	"github.com/rs/zerolog"
)

// New builds the notifier selected by cfg.Driver.
func New(cfg config.NotifyConfig, sig ports.SignatureService, log zerolog.Logger) (ports.Notifier, error) {
	signer := NewSigner(sig, cfg.SigningSecret)
	logger := log.With().Str("component", "notify").Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case "", "log":
		return NewLogNotifier(signer, logger), nil
	case "kafka":
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("notify: kafka driver requires brokers")
		}
		return NewKafkaNotifier(cfg.Brokers, cfg.Topic, signer, logger), nil
	case "amqp":
		return NewAMQPNotifier(cfg.AMQPURL, cfg.Exchange, signer, logger)
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
	}
}
