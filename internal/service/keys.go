package service

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for subkey derivation.
const (
	kdfTime    = 2
	kdfMemory  = 19 * 1024
	kdfThreads = 1
	kdfKeyLen  = 32
)

// DeriveSecret derives a hex-encoded subkey of master bound to purpose. The
// same inputs always yield the same secret, and distinct purposes never share one.
func DeriveSecret(master, purpose string) (string, error) {
	if master == "" {
		return "", errors.New("master secret is empty")
	}
	if purpose == "" {
		return "", errors.New("purpose is empty")
	}
	key := argon2.IDKey([]byte(master), []byte("cpo/"+purpose), kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	return hex.EncodeToString(key), nil
}
