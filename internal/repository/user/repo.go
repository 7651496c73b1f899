package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rx-radar/medsearch/internal/db"
	"github.com/rx-radar/medsearch/internal/domain"
	domuser "github.com/rx-radar/medsearch/internal/domain/user"
	logpkg "github.com/rx-radar/medsearch/internal/logger"
)

// store is the consumer interface for users (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

var errNoClaim = errors.New("phone not claimed")

// Repo is the user registry and credit ledger backed by JSON documents.
//
// Each user lives at {prefix}{collection}:{uuid}. The phone number is bound to a uuid
// through a claim key {prefix}{collection}:phone:{phone} written with SET NX, so
// concurrent first contacts from one phone agree on a single uuid.
type Repo struct {
	store      store
	prefix     string
	collection string
	newID      func() string
}

// New creates a user repository for the given collection.
func New(s store, prefix, collection string) *Repo {
	return &Repo{
		store:      s,
		prefix:     prefix,
		collection: collection,
		newID:      uuid.NewString,
	}
}

// FindOrCreate returns the user registered for phone, creating one with zero credits on
// first contact. created reports whether this call created the user.
func (r *Repo) FindOrCreate(ctx context.Context, phone string) (domuser.User, bool, error) {
	claim := r.phoneKey(phone)

	u, err := r.byClaim(ctx, claim)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, errNoClaim) {
		return domuser.User{}, false, err
	}

	nu, err := domuser.New(r.newID(), phone)
	if err != nil {
		return domuser.User{}, false, fmt.Errorf("new user: %w: %w", domain.ErrDataIntegrity, err)
	}

	// The document is written before the claim so a claimed uuid always resolves.
	docKey := r.userKey(nu.UUID())
	data, err := json.Marshal(toDoc(&nu))
	if err != nil {
		return domuser.User{}, false, fmt.Errorf("marshal user: %w", err)
	}
	written, err := r.store.JSONSetNX(ctx, docKey, data)
	if err != nil {
		return domuser.User{}, false, storageErr("json.set "+docKey, err)
	}
	if !written {
		return domuser.User{}, false, fmt.Errorf("user %s: %w: %w", nu.UUID(), domain.ErrDataIntegrity, domain.ErrAlreadyExists)
	}

	claimed, err := r.store.SetNX(ctx, claim, []byte(nu.UUID()))
	if err != nil {
		return r.resolveClaimError(ctx, claim, docKey, nu, err)
	}
	if claimed {
		return nu, true, nil
	}

	// Lost the race to a concurrent first contact: drop ours and use the winner.
	r.discard(ctx, docKey)
	u, err = r.byClaim(ctx, claim)
	if errors.Is(err, errNoClaim) {
		return domuser.User{}, false, fmt.Errorf("claim %s vanished: %w", claim, domain.ErrDataIntegrity)
	}
	if err != nil {
		return domuser.User{}, false, err
	}
	return u, false, nil
}

// Credits returns the user's remaining search credits.
// Returns domain.ErrUserNotFound if the user document does not exist.
func (r *Repo) Credits(ctx context.Context, userUUID string) (int, error) {
	key := r.userKey(userUUID)
	raw, err := r.store.JSONGet(ctx, key, "$.search_credits")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, fmt.Errorf("user %s: %w", userUUID, domain.ErrUserNotFound)
		}
		return 0, storageErr("json.get "+key, err)
	}

	var vals []*float64
	if err := json.Unmarshal(raw, &vals); err != nil {
		return 0, fmt.Errorf("decode credits %s: %w: %w", key, domain.ErrDataIntegrity, err)
	}
	if len(vals) == 0 || vals[0] == nil {
		return 0, nil
	}
	return int(*vals[0]), nil
}

// TouchLastSearch records the epoch seconds of the user's latest accepted search.
func (r *Repo) TouchLastSearch(ctx context.Context, userUUID string, epoch int64) error {
	key := r.userKey(userUUID)
	if err := r.store.JSONSet(ctx, key, "$.last_search_timestamp", []byte(strconv.FormatInt(epoch, 10))); err != nil {
		return storageErr("json.set "+key, err)
	}
	return nil
}

// resolveClaimError settles a SET NX that failed without a reply. The write may still
// have been applied, so the claim is re-read before our document is removed.
func (r *Repo) resolveClaimError(
	ctx context.Context, claim, docKey string, nu domuser.User, setErr error,
) (domuser.User, bool, error) {
	owner, err := r.store.Get(ctx, claim)
	switch {
	case err == nil && string(owner) == nu.UUID():
		return nu, true, nil
	case err == nil:
		r.discard(ctx, docKey)
		u, lerr := r.load(ctx, string(owner))
		if lerr != nil {
			return domuser.User{}, false, lerr
		}
		return u, false, nil
	case errors.Is(err, db.ErrKeyNotFound):
		r.discard(ctx, docKey)
		return domuser.User{}, false, storageErr("set nx "+claim, setErr)
	default:
		// claim state unknown: an unclaimed document is unreachable, so it stays
		return domuser.User{}, false, storageErr("set nx "+claim, setErr)
	}
}

func (r *Repo) byClaim(ctx context.Context, claim string) (domuser.User, error) {
	id, err := r.store.Get(ctx, claim)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domuser.User{}, errNoClaim
		}
		return domuser.User{}, storageErr("get "+claim, err)
	}
	return r.load(ctx, string(id))
}

func (r *Repo) load(ctx context.Context, userUUID string) (domuser.User, error) {
	key := r.userKey(userUUID)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domuser.User{}, fmt.Errorf("claimed user %s missing: %w", userUUID, domain.ErrDataIntegrity)
		}
		return domuser.User{}, storageErr("json.get "+key, err)
	}

	var d userDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return domuser.User{}, fmt.Errorf("decode user %s: %w: %w", key, domain.ErrDataIntegrity, err)
	}
	if d.UserUUID == "" {
		d.UserUUID = userUUID
	}
	return fromDoc(&d), nil
}

// discard removes an orphaned user document. Failure leaves an unreachable document behind.
func (r *Repo) discard(ctx context.Context, key string) {
	if err := r.store.Del(ctx, key); err != nil {
		logpkg.FromContext(ctx).Warn("failed to remove orphaned user document",
			zap.String("key", key), zap.Error(err))
	}
}

func (r *Repo) userKey(userUUID string) string {
	return r.prefix + r.collection + ":" + userUUID
}

func (r *Repo) phoneKey(phone string) string {
	return r.prefix + r.collection + ":phone:" + phone
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
