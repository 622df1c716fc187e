// Package ref mints prefixed, sortable references for boundary objects
// (FX quotes, provider transfers, invite tokens, issued cards).
package ref

import (
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies what a reference points at.
type Prefix string

const (
	Quote     Prefix = "fxq"
	Recipient Prefix = "rcpt"
	Transfer  Prefix = "tr"
	Payout    Prefix = "po"
	Invite    Prefix = "invite"
	Card      Prefix = "card"
	Request   Prefix = "req"
)

// New returns a reference in the form "prefix_suffix".
// It panics on an invalid prefix, which is a programming error.
func New(p Prefix) string {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("ref: invalid prefix %q: %v", p, err))
	}
	return tid.String()
}

// Parse validates s and checks it carries the expected prefix.
func Parse(s string, expected Prefix) (string, error) {
	tid, err := typeid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("ref: parse %q: %w", s, err)
	}
	if Prefix(tid.Prefix()) != expected {
		return "", fmt.Errorf("ref: expected prefix %q, got %q", expected, tid.Prefix())
	}
	return tid.String(), nil
}
