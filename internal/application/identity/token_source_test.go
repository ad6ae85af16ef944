package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/autotrader"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
)

type fakeAuthenticator struct {
	calls atomic.Int32
	token autotrader.Token
	err   error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context) (autotrader.Token, error) {
	f.calls.Add(1)
	if f.err != nil {
		return autotrader.Token{}, f.err
	}
	return f.token, nil
}

func TestTokenSource(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("reuses a valid token", func(t *testing.T) {
		now := base
		auth := &fakeAuthenticator{
			token: autotrader.Token{Bearer: "tok-1", Expires: base.Add(15 * time.Minute)},
		}
		src := NewTokenSource(auth, 5*time.Minute, WithClock(func() time.Time { return now }))

		for i := 0; i < 3; i++ {
			bearer, err := src.BearerToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "tok-1", bearer)
		}
		assert.Equal(t, int32(1), auth.calls.Load())
	})

	t.Run("refreshes within the expiry margin", func(t *testing.T) {
		now := base
		auth := &fakeAuthenticator{
			token: autotrader.Token{Bearer: "tok-1", Expires: base.Add(15 * time.Minute)},
		}
		src := NewTokenSource(auth, 5*time.Minute, WithClock(func() time.Time { return now }))

		_, err := src.BearerToken(context.Background())
		require.NoError(t, err)

		// 11 minutes in, only 4 minutes of validity remain
		now = base.Add(11 * time.Minute)
		auth.token = autotrader.Token{Bearer: "tok-2", Expires: now.Add(15 * time.Minute)}

		bearer, err := src.BearerToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", bearer)
		assert.Equal(t, int32(2), auth.calls.Load())
	})

	t.Run("propagates authenticate failures", func(t *testing.T) {
		auth := &fakeAuthenticator{err: shared.ErrUpstreamAuth}
		src := NewTokenSource(auth, 5*time.Minute)

		_, err := src.BearerToken(context.Background())
		assert.ErrorIs(t, err, shared.ErrUpstreamAuth)
	})

	t.Run("invalidate forces a re-authenticate", func(t *testing.T) {
		now := base
		auth := &fakeAuthenticator{
			token: autotrader.Token{Bearer: "tok-1", Expires: base.Add(time.Hour)},
		}
		src := NewTokenSource(auth, 5*time.Minute, WithClock(func() time.Time { return now }))

		_, err := src.BearerToken(context.Background())
		require.NoError(t, err)

		src.Invalidate()
		_, err = src.BearerToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), auth.calls.Load())
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		now := base
		auth := &fakeAuthenticator{
			token: autotrader.Token{Bearer: "tok-1", Expires: base.Add(time.Hour)},
		}
		src := NewTokenSource(auth, 5*time.Minute, WithClock(func() time.Time { return now }))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bearer, err := src.BearerToken(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "tok-1", bearer)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), auth.calls.Load())
	})
}

func TestStaticCredentialResolver(t *testing.T) {
	t.Run("serves configured credentials", func(t *testing.T) {
		resolver := NewStaticCredentialResolver(config.ProviderConfig{
			Key:          "key-1",
			Secret:       "secret-1",
			AdvertiserID: "adv-1",
		})

		creds, err := resolver.Resolve(context.Background(), "any-tenant")
		require.NoError(t, err)
		assert.Equal(t, "adv-1", creds.AdvertiserID)
	})

	t.Run("fails when credentials are absent", func(t *testing.T) {
		resolver := NewStaticCredentialResolver(config.ProviderConfig{})

		_, err := resolver.Resolve(context.Background(), "any-tenant")
		assert.True(t, errors.Is(err, shared.ErrUpstreamAuth))
	})
}
