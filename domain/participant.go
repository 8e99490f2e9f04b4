// Package domain contains core concepts of the chat system.
// This file defines Participant identities and related rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"chat-hub/errors"
	"strings"
)

// Identity is the display name a connection binds when it joins.
// It is not unique: several connections may share the same name.
type Identity string

// NewIdentity trims the raw name typed by a user and rejects blank ones.
func NewIdentity(raw string) (Identity, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.ErrEmptyIdentity
	}
	return Identity(name), nil
}

func (i Identity) String() string {
	return string(i)
}
