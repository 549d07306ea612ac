package adminsdk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, ErrNoCredentials)

		token, err := AccessToken(ctx, store)
		require.NoError(t, err)
		require.Empty(t, token)

		token, err = RefreshToken(ctx, store)
		require.NoError(t, err)
		require.Empty(t, token)

		require.ErrorIs(t, store.SetIdentity(ctx, Principal{ID: "1"}), ErrNoCredentials)
	})

	t.Run("partial credentials are refused and leave state alone", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

		require.ErrorIs(t, store.Save(ctx, Credentials{AccessToken: "a2"}), ErrPartialCredentials)
		require.ErrorIs(t, store.Save(ctx, Credentials{RefreshToken: "r2"}), ErrPartialCredentials)

		creds, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "a1", creds.AccessToken)
		require.Equal(t, "r1", creds.RefreshToken)
	})

	t.Run("identity round trip is isolated from callers", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()

		admin := &Principal{ID: "7", Email: "ops@directhealth.test"}
		require.NoError(t, store.Save(ctx, Credentials{AccessToken: "a", RefreshToken: "r", Identity: admin}))
		admin.Email = "mutated"

		creds, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "ops@directhealth.test", creds.Identity.Email)

		creds.Identity.Email = "mutated again"
		again, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "ops@directhealth.test", again.Identity.Email)

		require.NoError(t, store.SetIdentity(ctx, Principal{ID: "7", Email: "new@directhealth.test"}))
		again, err = store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "new@directhealth.test", again.Identity.Email)
		require.Equal(t, "a", again.AccessToken)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, Credentials{AccessToken: "a", RefreshToken: "r"}))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, ErrNoCredentials)
	})
}

// Readers must never see the access token of one pair with the refresh
// token of another.
func TestMemoryStoreAtomicity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Credentials{AccessToken: "access-0", RefreshToken: "refresh-0"}))

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				n := fmt.Sprintf("%d-%d", w, i)
				_ = store.Save(ctx, Credentials{AccessToken: "access-" + n, RefreshToken: "refresh-" + n})
			}
		}()
	}

	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				creds, err := store.Load(ctx)
				if err != nil {
					errs <- err
					return
				}
				if strings.TrimPrefix(creds.AccessToken, "access-") != strings.TrimPrefix(creds.RefreshToken, "refresh-") {
					errs <- fmt.Errorf("torn read: %q / %q", creds.AccessToken, creds.RefreshToken)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	require.Nil(t, ParseIdentity(nil))
	require.Nil(t, ParseIdentity([]byte("{not json")))
	require.Nil(t, ParseIdentity([]byte(`{"email":"no-id@example.com"}`)))

	p := ParseIdentity([]byte(`{"id":"1","email":"a@b.c","firstName":"A","lastName":"B"}`))
	require.NotNil(t, p)
	require.Equal(t, Principal{ID: "1", Email: "a@b.c", FirstName: "A", LastName: "B"}, *p)
}
