// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Identity is the registered user. Email is the key for every remote call.
type Identity struct {
	DisplayName string
	Email       string
}

// NewIdentity trims both fields and rejects an empty email.
func NewIdentity(displayName, email string) (Identity, error) {
	id := Identity{
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.TrimSpace(email),
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Validate checks that an email was supplied. Nothing else is enforced.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

// IsZero reports whether no identity is present.
func (i Identity) IsZero() bool {
	return i.Email == ""
}

func (i Identity) String() string {
	if i.DisplayName == "" {
		return i.Email
	}
	return fmt.Sprintf("%s <%s>", i.DisplayName, i.Email)
}
