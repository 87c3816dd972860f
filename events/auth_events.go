// Package events defines the typed domain events exchanged between modules.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserRegisteredEvent is emitted when a new account is created. It carries
// the confirmation token so the mailer can build the confirmation link
// without calling back into the auth module.
type UserRegisteredEvent struct {
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	ConfirmationToken string    `json:"confirmation_token"`
	RegisteredAt      time.Time `json:"registered_at"`
}

// UserRegisteredV1 is the typed event definition for account creation.
// Subject: events.auth.v1.user-registered
var UserRegisteredV1 = helper.EventDefinition[UserRegisteredEvent](
	"auth", "UserRegistered", "v1",
)

// ConfirmationRequestedEvent is emitted when an unconfirmed user asks for
// the confirmation email to be sent again.
type ConfirmationRequestedEvent struct {
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	ConfirmationToken string    `json:"confirmation_token"`
	RequestedAt       time.Time `json:"requested_at"`
}

// ConfirmationRequestedV1 is the typed event definition for re-requested
// confirmation emails.
// Subject: events.auth.v1.confirmation-requested
var ConfirmationRequestedV1 = helper.EventDefinition[ConfirmationRequestedEvent](
	"auth", "ConfirmationRequested", "v1",
)
