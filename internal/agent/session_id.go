package agent

import (
	"fmt"
	"time"

	"github.com/cbag-ai/cbag-web/internal/domain"
)

// SessionIDFor derives the webhook session identifier for an identity.
//
// Registered users get a stable "registered-{email}" token so the remote
// agent can correlate their history across turns. Anonymous visitors get a
// fresh "guest-{timestamp}" token on every call, so the remote side keeps
// no memory for guests. The asymmetry is intentional; see DESIGN.md.
func SessionIDFor(identity domain.Identity) string {
	if identity.Registered {
		return "registered-" + identity.Email
	}
	return fmt.Sprintf("guest-%d", time.Now().UnixNano())
}
