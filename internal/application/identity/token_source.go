package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/infrastructure/autotrader"
)

// Authenticator exchanges configured credentials for a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context) (autotrader.Token, error)
}

// TokenSource caches the provider bearer token and refreshes it ahead of
// expiry. Refreshes are serialized under the mutex so a burst of requests
// after expiry produces one authenticate call.
type TokenSource struct {
	auth   Authenticator
	margin time.Duration
	logger *zap.Logger
	clock  func() time.Time

	mu      sync.Mutex
	current autotrader.Token
}

// TokenSourceOption customizes a TokenSource
type TokenSourceOption func(*TokenSource)

// WithLogger sets the token source logger
func WithLogger(logger *zap.Logger) TokenSourceOption {
	return func(s *TokenSource) {
		s.logger = logger
	}
}

// WithClock overrides the time source, used in tests
func WithClock(clock func() time.Time) TokenSourceOption {
	return func(s *TokenSource) {
		s.clock = clock
	}
}

// NewTokenSource creates a token source. margin is how long before expiry
// a token is considered stale and refreshed.
func NewTokenSource(auth Authenticator, margin time.Duration, opts ...TokenSourceOption) *TokenSource {
	s := &TokenSource{
		auth:   auth,
		margin: margin,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BearerToken returns a valid bearer token, refreshing it when stale
func (s *TokenSource) BearerToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Valid(s.clock(), s.margin) {
		return s.current.Bearer, nil
	}

	token, err := s.auth.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.current = token

	s.logger.Debug("provider token refreshed",
		zap.Time("expires", token.Expires),
	)
	return token.Bearer, nil
}

// Invalidate drops the cached token so the next call re-authenticates,
// used after the provider rejects a token early
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.current = autotrader.Token{}
	s.mu.Unlock()
}

var _ autotrader.TokenProvider = (*TokenSource)(nil)
