package service

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

func nowFrom(c Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

// TokenSource mints invitation tokens.
type TokenSource interface {
	NewToken() (string, error)
}

// UUIDTokens mints random (version 4) UUIDs, 122 bits of entropy in a
// 128-bit value.
type UUIDTokens struct{}

func (UUIDTokens) NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// LinkBuilder turns an invitation token into the URL sent to the invitee.
type LinkBuilder interface {
	InvitationURL(token string) string
}

// BaseURLLinks builds links below a public base URL.
type BaseURLLinks struct {
	BaseURL string
}

func (b BaseURLLinks) InvitationURL(token string) string {
	return strings.TrimRight(b.BaseURL, "/") + "/v1/accept/" + url.PathEscape(token)
}
