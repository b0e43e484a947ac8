// Package ids generates the short uppercase alphanumeric identifiers shown to
// users. Uniqueness is enforced by the store's primary keys; callers retry on
// conflict.
package ids

import "github.com/google/uuid"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	CodeLength          = 8
	TransactionIDLength = 10
)

// Code returns a new 8-character redeemable code.
func Code() string { return random(CodeLength) }

// TransactionID returns a new 10-character transaction id.
func TransactionID() string { return random(TransactionIDLength) }

// random draws from v4 UUIDs, skipping the version and variant bytes and
// rejecting values that would bias the modulo.
func random(n int) string {
	out := make([]byte, 0, n)
	for len(out) < n {
		u := uuid.New()
		for i, b := range u {
			if i == 6 || i == 8 || b >= 252 {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
