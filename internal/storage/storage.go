package storage

import (
	"context"
	"errors"
	"time"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/share"
)

var (
	ErrNotFound  = errors.New("share not found")
	ErrAmbiguous = errors.New("ambiguous share prefix")
)

// Share is a saved, shareable snapshot of a workspace.
type Share struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Language  piston.Language `json:"language"`
	Token     string          `json:"token"`
	State     share.State     `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// ShareListOptions controls filtering and pagination for ListShares.
type ShareListOptions struct {
	Language piston.Language
	Limit    int
	Offset   int
}

// Store is the persistence interface for share links.
type Store interface {
	// CreateShare inserts a new share. The ID field must be set by the caller;
	// Language and Token are derived from State.
	CreateShare(ctx context.Context, s *Share) error

	// GetShare returns a share by ID or unique ID prefix.
	GetShare(ctx context.Context, id string) (*Share, error)

	// ListShares returns shares ordered by created_at descending.
	ListShares(ctx context.Context, opts ShareListOptions) ([]Share, error)

	// DeleteShare removes a share by ID or unique ID prefix.
	DeleteShare(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
