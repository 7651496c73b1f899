package search

import (
	"context"

	"github.com/rx-radar/medsearch/internal/domain/search/record"
	"github.com/rx-radar/medsearch/internal/domain/search/request"
	domuser "github.com/rx-radar/medsearch/internal/domain/user"
)

// SessionVerifier exchanges a session token for the authenticated user id.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// UserRegistry resolves phone numbers to users, creating them on first contact.
type UserRegistry interface {
	FindOrCreate(ctx context.Context, phone string) (u domuser.User, created bool, err error)
	TouchLastSearch(ctx context.Context, userUUID string, epoch int64) error
}

// CreditLedger reads a user's remaining free searches.
type CreditLedger interface {
	Credits(ctx context.Context, userUUID string) (int, error)
}

// SearchRouter persists a search request into a destination queue.
type SearchRouter interface {
	Append(ctx context.Context, p request.Payload, userUUID string, dest record.Destination) (string, error)
}
