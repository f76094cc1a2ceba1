// Package trial implements the free-trial gate for anonymous visitors.
package trial

import "github.com/cbag-ai/cbag-web/internal/domain"

// Decision is the outcome of a gate check.
type Decision int

const (
	// Allow permits a new turn to start.
	Allow Decision = iota
	// Deny blocks the turn until the visitor registers.
	Deny
)

// String returns a readable form for logs.
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide reports whether a new turn may start. Registered identities are
// never capped; anonymous identities are allowed while usesCount is below
// maxFreeUses. Callers must evaluate this at the moment of send, not only
// at render time, since an earlier turn in the same session may have
// consumed the last free use.
func Decide(identity domain.Identity, usesCount, maxFreeUses int) Decision {
	if identity.Registered {
		return Allow
	}
	if usesCount < maxFreeUses {
		return Allow
	}
	return Deny
}

// RecordUse returns the counter after charging one settled turn. Only
// anonymous turns are charged; registered identities pass through
// unchanged. The gate never persists anything itself — callers store the
// returned value.
func RecordUse(identity domain.Identity, usesCount int) int {
	if identity.Registered {
		return usesCount
	}
	return usesCount + 1
}
