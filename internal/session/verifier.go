// Package session verifies user session tokens (signed ID-token JWTs) and resolves
// them to a user identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rx-radar/medsearch/internal/domain"
)

// DefaultCertURL serves the RSA certificates that sign Firebase ID tokens.
const DefaultCertURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// IssuerFor returns the ID-token issuer of a Firebase project.
func IssuerFor(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// Config holds session verification settings. At least one of HMACSecret or CertURL is required.
type Config struct {
	HMACSecret string
	CertURL    string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	HTTPClient *http.Client
}

// Claims are the ID-token claims the verifier reads.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates session tokens.
type Verifier struct {
	secret []byte
	certs  *certSource
	parser *jwt.Parser
}

// NewVerifier creates a Verifier from cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.HMACSecret == "" && cfg.CertURL == "" {
		return nil, fmt.Errorf("session: hmac secret or cert url is required")
	}
	// the shared securetoken certs sign tokens of every project; only aud/iss bind them to ours
	if cfg.CertURL != "" && cfg.Audience == "" {
		return nil, fmt.Errorf("session: audience (project id) is required with cert url")
	}
	if cfg.Issuer == "" && cfg.Audience != "" {
		cfg.Issuer = IssuerFor(cfg.Audience)
	}

	var methods []string
	v := &Verifier{}
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.CertURL != "" {
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		v.certs = newCertSource(cfg.CertURL, client)
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)

	return v, nil
}

// Verify returns the user id carried by token. Every failure is reported as
// domain.ErrUnauthorized; the cause is kept in the chain for logging.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty token: %w", domain.ErrUnauthorized)
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.key(ctx, t)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	uid := claims.Subject
	if uid == "" {
		uid = claims.UserID
	}
	if uid == "" {
		return "", fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}
	return uid, nil
}

func (v *Verifier) key(ctx context.Context, t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret == nil {
			return nil, errors.New("hmac tokens are not accepted")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.certs == nil {
			return nil, errors.New("rsa tokens are not accepted")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.certs.key(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
}

// Name identifies the verifier in health reports.
func (v *Verifier) Name() string { return "session_keys" }

// HealthCheck confirms signing certificates can be loaded. HMAC-only verifiers always pass.
func (v *Verifier) HealthCheck(ctx context.Context) error {
	if v.certs == nil {
		return nil
	}
	v.certs.mu.Lock()
	defer v.certs.mu.Unlock()
	if err := v.certs.ensureFresh(ctx); err != nil {
		return fmt.Errorf("session certs: %w", err)
	}
	return nil
}
