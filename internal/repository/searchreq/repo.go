package searchreq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rx-radar/medsearch/internal/domain"
	"github.com/rx-radar/medsearch/internal/domain/search/record"
	"github.com/rx-radar/medsearch/internal/domain/search/request"
)

// store is the consumer interface for search requests (ISP).
type store interface {
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
}

// Collections names the storage collection of each destination.
type Collections struct {
	Immediate string
	Pending   string
}

// Repo appends search requests into their destination collection. Records are never
// updated or deleted.
type Repo struct {
	store       store
	prefix      string
	collections Collections
	newID       func() string
	now         func() time.Time
}

// New creates a search request repository.
func New(s store, prefix string, collections Collections) *Repo {
	return &Repo{
		store:       s,
		prefix:      prefix,
		collections: collections,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Append stores a new search request for userUUID in dest and returns its id.
func (r *Repo) Append(
	ctx context.Context, p request.Payload, userUUID string, dest record.Destination,
) (string, error) {
	collection, err := r.collection(dest)
	if err != nil {
		return "", err
	}

	rec, err := record.New(r.newID(), userUUID, p, r.now().Unix())
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}

	data, err := json.Marshal(toDoc(&rec))
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	key := r.prefix + collection + ":" + rec.ID()
	created, err := r.store.JSONSetNX(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("json.set %s: %w: %w", key, domain.ErrStorageUnavailable, err)
	}
	if !created {
		return "", fmt.Errorf("search request %s: %w", rec.ID(), domain.ErrAlreadyExists)
	}
	return rec.ID(), nil
}

func (r *Repo) collection(dest record.Destination) (string, error) {
	switch dest {
	case record.Immediate:
		return r.collections.Immediate, nil
	case record.Pending:
		return r.collections.Pending, nil
	default:
		return "", fmt.Errorf("unknown destination %q", dest)
	}
}
