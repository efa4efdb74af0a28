// Package oracle is the client for the external compatibility scoring
// service: a keyed text-generation endpoint that returns unstructured
// text expected to contain an embedded JSON array of scores. Nothing is
// enforced server-side, so parsing here is defensive by contract.
package oracle

import (
	"errors"
	"sync/atomic"
)

// ErrNoCredentials is returned when the keyring is empty. The scorer
// treats it as a total scoring failure and falls back.
var ErrNoCredentials = errors.New("oracle: no credentials configured")

// Keyring hands out API keys round-robin. Rotation state is an atomic
// counter so concurrent batch dispatch never reuses the same quota
// slot back-to-back.
type Keyring struct {
	keys []string
	next atomic.Uint64
}

// NewKeyring creates a keyring over the given credentials.
func NewKeyring(keys []string) *Keyring {
	return &Keyring{keys: keys}
}

// Next returns the next credential in rotation.
func (k *Keyring) Next() (string, error) {
	if len(k.keys) == 0 {
		return "", ErrNoCredentials
	}
	n := k.next.Add(1) - 1
	return k.keys[n%uint64(len(k.keys))], nil
}

// Len reports how many credentials are available.
func (k *Keyring) Len() int { return len(k.keys) }
