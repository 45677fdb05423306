package domain

import "time"

// InvitationTTL is how long an invitation stays redeemable after issue or
// resend.
const InvitationTTL = 10 * 24 * time.Hour

type Invitation struct {
	ID         string
	Email      string
	Token      string // UUIDv4, never rotated
	InvitedBy  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	IsAccepted bool
	AcceptedAt *time.Time
}

// IsExpired reports whether now is strictly past the expiry.
func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsValid reports whether the invitation can still be redeemed.
func (i Invitation) IsValid(now time.Time) bool {
	return !i.IsAccepted && !i.IsExpired(now)
}
