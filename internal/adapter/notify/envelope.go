// Package notify delivers user notifications over a log sink, Kafka or
// RabbitMQ. Every message body is a signed JSON envelope.
package notify

import (
	"encoding/json"
	"fmt"
	"strconv"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
)

// Header names carried with every delivered envelope.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderEvent     = "X-Event"
)

// Envelope is a serialised notification and its delivery headers.
type Envelope struct {
	Key     string
	Body    []byte
	Headers map[string]string
}

// Signer seals notifications into envelopes.
type Signer struct {
	sig    ports.SignatureService
	secret string
}

// NewSigner creates a Signer. An empty secret disables signing.
func NewSigner(sig ports.SignatureService, secret string) *Signer {
	return &Signer{sig: sig, secret: secret}
}

// Seal marshals n and signs EVENT|TIMESTAMP|ID|BODY.
func (s *Signer) Seal(n domain.Notification) (*Envelope, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}

	ts := n.OccurredAt.Unix()
	env := &Envelope{
		Key:  n.UserID,
		Body: body,
		Headers: map[string]string{
			HeaderEvent:     string(n.Event),
			HeaderTimestamp: strconv.FormatInt(ts, 10),
		},
	}
	if s.secret != "" {
		canonical := s.sig.BuildCanonicalString(string(n.Event), ts, n.ID.String(), string(body))
		env.Headers[HeaderSignature] = s.sig.Sign(s.secret, canonical)
	}
	return env, nil
}
