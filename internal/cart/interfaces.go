package cart

import (
	"context"
	"time"
)

// BackendAPI is the slice of the upstream commerce API the cart store needs:
// fetching and persisting the authenticated customer's cart. The response of
// a persist call is the authoritative line list.
type BackendAPI interface {
	FetchCart(ctx context.Context, customerID string) (Lines, error)
	PersistCart(ctx context.Context, customerID string, lines Lines) (Lines, error)
}

// GuestStore persists guest cart snapshots as JSON under the cart token.
type GuestStore interface {
	Load(ctx context.Context, token string) (Lines, error)
	Save(ctx context.Context, token string, lines Lines) error
	Clear(ctx context.Context, token string) error
}

// SyncConfig tunes the background retry loop for backend persistence.
type SyncConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}
