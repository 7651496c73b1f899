package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rx-radar/medsearch/internal/domain"
	"github.com/rx-radar/medsearch/internal/domain/search/record"
	"github.com/rx-radar/medsearch/internal/domain/search/request"
	logpkg "github.com/rx-radar/medsearch/internal/logger"
	"github.com/rx-radar/medsearch/internal/metrics"
)

// Outcome describes a stored search request.
type Outcome struct {
	RequestID   string
	UserUUID    string
	SessionUID  string
	Destination record.Destination
	NewUser     bool
}

// ShowPayment reports whether the client must collect payment before the search runs.
func (o Outcome) ShowPayment() bool { return o.Destination == record.Pending }

// Service gates search requests on session, user and credit state.
type Service struct {
	verifier SessionVerifier
	users    UserRegistry
	ledger   CreditLedger
	router   SearchRouter

	rateLimitWindow time.Duration
	now             func() time.Time
}

// New creates a Service.
func New(verifier SessionVerifier, users UserRegistry, ledger CreditLedger, router SearchRouter) *Service {
	return &Service{
		verifier: verifier,
		users:    users,
		ledger:   ledger,
		router:   router,
		now:      time.Now,
	}
}

// WithRateLimit rejects users whose last accepted search is younger than window.
// A zero window disables the check.
func (s *Service) WithRateLimit(window time.Duration) *Service {
	s.rateLimitWindow = window
	return s
}

// Submit runs a validated payload through verification, user lookup and credit routing.
//
// Errors: domain.ErrUnauthorized for a bad session, domain.ErrRateLimited when the
// rate limit is on and hit, domain.ErrStorageUnavailable / domain.ErrDataIntegrity
// from storage.
func (s *Service) Submit(ctx context.Context, p request.Payload) (Outcome, error) {
	log := logpkg.FromContext(ctx)

	uid, err := s.verifier.Verify(ctx, p.SessionToken)
	if err != nil {
		metrics.SessionVerificationsTotal.WithLabelValues("rejected").Inc()
		if !errors.Is(err, domain.ErrUnauthorized) {
			err = fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		return Outcome{}, err
	}
	metrics.SessionVerificationsTotal.WithLabelValues("verified").Inc()

	u, created, err := s.users.FindOrCreate(ctx, p.PhoneNumber)
	if err != nil {
		return Outcome{}, fmt.Errorf("find user: %w", err)
	}
	if created {
		metrics.UsersCreatedTotal.Inc()
		log.Info("user created", zap.String("user_uuid", u.UUID()))
	}

	now := s.now()
	if s.rateLimitWindow > 0 && u.SearchedWithin(now, s.rateLimitWindow) {
		return Outcome{}, fmt.Errorf("user %s: %w", u.UUID(), domain.ErrRateLimited)
	}

	credits, err := s.ledger.Credits(ctx, u.UUID())
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		log.Warn("user document missing on credit read, assuming zero credits",
			zap.String("user_uuid", u.UUID()))
		credits = 0
	case err != nil:
		return Outcome{}, fmt.Errorf("read credits: %w", err)
	}

	dest := record.ForCredits(credits)
	id, err := s.router.Append(ctx, p, u.UUID(), dest)
	if err != nil {
		return Outcome{}, fmt.Errorf("store search request: %w", err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(dest)).Inc()

	if s.rateLimitWindow > 0 {
		// The request is already stored; a failed stamp only loosens the next check.
		if err := s.users.TouchLastSearch(ctx, u.UUID(), now.Unix()); err != nil {
			log.Warn("failed to stamp last search", zap.String("user_uuid", u.UUID()), zap.Error(err))
		}
	}

	return Outcome{
		RequestID:   id,
		UserUUID:    u.UUID(),
		SessionUID:  uid,
		Destination: dest,
		NewUser:     created,
	}, nil
}
