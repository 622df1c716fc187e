package provider

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/ref"

	"github.com/rs/zerolog"
)

// CardProviderName is the card program every simulated card is issued under.
const CardProviderName = "Marqeta"

// SimulatedIssuer implements ports.CardIssuer.
type SimulatedIssuer struct {
	log zerolog.Logger
}

// NewSimulatedIssuer creates a new SimulatedIssuer.
func NewSimulatedIssuer(log zerolog.Logger) *SimulatedIssuer {
	return &SimulatedIssuer{log: log}
}

// Issue returns a synthetic card reference with random last four digits.
func (i *SimulatedIssuer) Issue(_ context.Context, contractor *domain.Contractor, label string) (*ports.IssuedCard, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return nil, fmt.Errorf("generating card number: %w", err)
	}
	card := &ports.IssuedCard{
		Provider:    CardProviderName,
		ProviderRef: ref.New(ref.Card),
		Last4:       fmt.Sprintf("%04d", n.Int64()),
	}

	i.log.Debug().
		Str("contractor_id", contractor.ID.String()).
		Str("provider_ref", card.ProviderRef).
		Str("label", label).
		Msg("card issued")
	return card, nil
}
