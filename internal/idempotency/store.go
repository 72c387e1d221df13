/*
Package idempotency remembers which orders were already executed for a client-supplied key.

A key moves through three states:
  - absent: Claim succeeds and the caller executes the order
  - pending: another request owns the key, Claim fails with exception.ErrConflict
  - done: Claim returns the stored order, nothing is executed again

A done key only replays for the same symbol and quantity. Reusing it for a
different order fails with exception.ErrConflict.

A failed order releases its key so the client may retry.
*/
package idempotency

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bank/internal/model"
	"bank/pkg/exception"
)

// DefaultTTL is how long claimed keys and stored orders are kept.
const DefaultTTL = 24 * time.Hour

const maxKeyLength = 128

// Store claims idempotency keys.
type Store interface {
	// Claim reserves key for the order identified by fingerprint. When the key
	// already completed for the same fingerprint it returns the stored order and
	// done = true. A pending key, or a done key of another order, fails with
	// exception.ErrConflict.
	Claim(ctx context.Context, key, fingerprint string) (order model.ExecutedOrder, done bool, err error)
	// Complete stores the executed order of a claimed key.
	Complete(ctx context.Context, key string, order model.ExecutedOrder) error
	// Release forgets a claimed key.
	Release(ctx context.Context, key string) error
}

// Key scopes a client key to one customer and side, so keys of different
// customers never collide.
func Key(customerID int64, side string, clientKey string) (string, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return "", exception.Invalid("idempotency key must not be blank")
	}
	if len(clientKey) > maxKeyLength {
		return "", exception.Invalid("idempotency key must be at most %d characters", maxKeyLength)
	}
	return strconv.FormatInt(customerID, 10) + ":" + strings.ToLower(side) + ":" + clientKey, nil
}

// Fingerprint identifies the order parameters a key was first used with.
func Fingerprint(symbol string, quantity int64) string {
	return model.NormalizeSymbol(symbol) + "x" + strconv.FormatInt(quantity, 10)
}

func clientKey(key string) string {
	return key[strings.LastIndex(key, ":")+1:]
}

func inFlight(key string) error {
	return exception.Public(exception.ErrConflict, "a request with idempotency key %s is already in progress", clientKey(key))
}

// replay returns the stored order when it matches fingerprint.
func replay(key, fingerprint string, stored model.ExecutedOrder) (model.ExecutedOrder, bool, error) {
	if Fingerprint(stored.Symbol, stored.Quantity) != fingerprint {
		return model.ExecutedOrder{}, false, exception.Public(exception.ErrConflict, "idempotency key %s reused with different parameters", clientKey(key))
	}
	return stored, true, nil
}
