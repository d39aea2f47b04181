package approval

import (
	"context"
	"errors"
)

// ErrPasswordDeferred is returned by a PasswordProvider that cannot supply
// a password now. The operation is parked until ResumeWithPassword.
var ErrPasswordDeferred = errors.New("password deferred")

// PasswordProvider supplies the wallet password once an operation is staged.
type PasswordProvider interface {
	Password(ctx context.Context, summary Summary) (string, error)
}

// Synchronous is a password supplied together with the request.
type Synchronous string

// Password implements PasswordProvider.
func (s Synchronous) Password(context.Context, Summary) (string, error) {
	return string(s), nil
}

// Prompt asks interactively, showing the summary first. Returning an error
// abandons the operation.
type Prompt func(ctx context.Context, summary Summary) (string, error)

// Password implements PasswordProvider.
func (p Prompt) Password(ctx context.Context, summary Summary) (string, error) {
	return p(ctx, summary)
}

// Deferred parks the operation; the caller collects the password later.
type Deferred struct{}

// Password implements PasswordProvider.
func (Deferred) Password(context.Context, Summary) (string, error) {
	return "", ErrPasswordDeferred
}
