package notify

import (
	"context"

	"contractor-payouts/internal/core/domain"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	signer *Signer
	log    zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(signer *Signer, log zerolog.Logger) *LogNotifier {
	return &LogNotifier{signer: signer, log: log}
}

// Notify implements ports.Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg domain.Notification) error {
	env, err := n.signer.Seal(msg)
	if err != nil {
		return err
	}
	n.log.Info().
		Str("user_id", msg.UserID).
		Str("event", string(msg.Event)).
		Str("signature", env.Headers[HeaderSignature]).
		RawJSON("envelope", env.Body).
		Msg("notification")
	return nil
}

// Close implements ports.Notifier.
func (n *LogNotifier) Close() error { return nil }
