package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rx-radar/medsearch/internal/domain"
	"github.com/rx-radar/medsearch/internal/domain/search/record"
	"github.com/rx-radar/medsearch/internal/domain/search/request"
	domuser "github.com/rx-radar/medsearch/internal/domain/user"
	"github.com/rx-radar/medsearch/internal/session"
	healthuc "github.com/rx-radar/medsearch/internal/usecase/health"
	searchuc "github.com/rx-radar/medsearch/internal/usecase/search"
)

const testSecret = "transport-test-secret"

// --- In-memory collaborators ---

type memUsers struct {
	mu       sync.Mutex
	byPhone  map[string]string
	credits  map[string]int
	last     map[string]int64
	seq      int
	err      error
	touchErr error
}

func newMemUsers() *memUsers {
	return &memUsers{
		byPhone: make(map[string]string),
		credits: make(map[string]int),
		last:    make(map[string]int64),
	}
}

func (m *memUsers) FindOrCreate(_ context.Context, phone string) (domuser.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domuser.User{}, false, m.err
	}
	if id, ok := m.byPhone[phone]; ok {
		return domuser.Reconstruct(id, phone, m.credits[id], m.last[id]), false, nil
	}
	m.seq++
	id := fmt.Sprintf("user-%d", m.seq)
	m.byPhone[phone] = id
	m.credits[id] = 0
	u, err := domuser.New(id, phone)
	return u, true, err
}

func (m *memUsers) TouchLastSearch(_ context.Context, userUUID string, epoch int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[userUUID] = epoch
	return m.touchErr
}

func (m *memUsers) Credits(_ context.Context, userUUID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[userUUID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	return c, nil
}

func (m *memUsers) setCredits(phone string, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPhone[phone]
	if !ok {
		m.seq++
		id = fmt.Sprintf("user-%d", m.seq)
		m.byPhone[phone] = id
	}
	m.credits[id] = credits
}

type storedRequest struct {
	id      string
	userID  string
	dest    record.Destination
	payload request.Payload
}

type memRouter struct {
	mu     sync.Mutex
	stored []storedRequest
	err    error
}

func (m *memRouter) Append(_ context.Context, p request.Payload, userUUID string, dest record.Destination) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	id := fmt.Sprintf("req-%d", len(m.stored)+1)
	m.stored = append(m.stored, storedRequest{id: id, userID: userUUID, dest: dest, payload: p})
	return id, nil
}

func (m *memRouter) in(dest record.Destination) []storedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storedRequest
	for _, s := range m.stored {
		if s.dest == dest {
			out = append(out, s)
		}
	}
	return out
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Fixture ---

type fixture struct {
	users  *memUsers
	router *memRouter
	db     *mockPinger
	search *searchuc.Service
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	verifier, err := session.NewVerifier(session.Config{HMACSecret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	f := &fixture{users: newMemUsers(), router: &memRouter{}, db: &mockPinger{}}
	f.search = searchuc.New(verifier, f.users, f.users, f.router)
	f.server = NewServer(f.search, healthuc.New(f.db), zap.NewNop())
	return f
}

func (f *fixture) handler(cfg RouterConfig) http.Handler {
	return NewRouter(f.server, cfg, zap.NewNop())
}

func signToken(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

var errBoom = errors.New("boom")
