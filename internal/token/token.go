package token

import (
	"context"
	"errors"
	"time"
)

// ErrAuthentication marks failures that require operator action: the shared
// secret was rejected or no usable token could be obtained.
var ErrAuthentication = errors.New("authentication failed")

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type Provider interface {
	FetchToken(ctx context.Context) (Token, error)
}
