// Package domain contains core domain types for the CBAg chat application.
package domain

import "strings"

// Identity describes who is driving a chat session: an anonymous visitor or
// a registered user. Exactly one kind is active per session, and it changes
// only through an explicit login or logout — never implicitly.
type Identity struct {
	Registered  bool   `json:"registered"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Anonymous returns the identity of an unregistered visitor.
func Anonymous() Identity {
	return Identity{}
}

// NewRegistered builds a registered identity. An empty display name falls
// back to the local part of the email, mirroring the mock login flow.
func NewRegistered(email, displayName string) Identity {
	if displayName == "" {
		displayName = email
		if i := strings.IndexByte(email, '@'); i > 0 {
			displayName = email[:i]
		}
	}
	return Identity{Registered: true, Email: email, DisplayName: displayName}
}

// IsAnonymous reports whether the identity is an unregistered visitor.
func (id Identity) IsAnonymous() bool {
	return !id.Registered
}
