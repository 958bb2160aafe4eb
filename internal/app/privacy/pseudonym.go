// Package privacy holds the data-protection rules around persisted records:
// pseudonymous session hashes, content encryption, retention and text masking.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SessionHashLen is the length of a pseudonymous session hash.
const SessionHashLen = 16

// Pseudonymizer derives day-scoped session hashes. The same id maps to the
// same hash for one UTC calendar day and to a different one the next day.
type Pseudonymizer struct {
	now func() time.Time
}

// NewPseudonymizer uses now as its clock; nil means time.Now.
func NewPseudonymizer(now func() time.Time) *Pseudonymizer {
	if now == nil {
		now = time.Now
	}
	return &Pseudonymizer{now: now}
}

// Pseudonymize hashes id with today's date. An empty id gets a random one,
// which yields a hash nobody can recompute.
func (p *Pseudonymizer) Pseudonymize(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	return HashForDay(id, p.now())
}

// HashForDay is the session hash of id on the UTC date of t.
func HashForDay(id string, t time.Time) string {
	sum := sha256.Sum256([]byte(id + "_" + t.UTC().Format(time.DateOnly)))
	return hex.EncodeToString(sum[:])[:SessionHashLen]
}
