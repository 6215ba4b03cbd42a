package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/funkctl/internal/models"
)

type memoryStore struct {
	token   string
	cleared int
	saveErr error
}

func (m *memoryStore) Load() (string, error) { return m.token, nil }

func (m *memoryStore) Save(token string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memoryStore) Clear() error {
	m.token = ""
	m.cleared++
	return nil
}

type fakeAPI struct {
	verifyErr   error
	logoutErr   error
	loginResult *models.LoginResult
	loginErr    error

	verifyCalls int
	logoutCalls int
}

func (f *fakeAPI) Verify(context.Context) (*models.VerifyResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.VerifyResult{Authenticated: true, Username: "admin"}, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) Login(context.Context, string, string) (*models.LoginResult, error) {
	return f.loginResult, f.loginErr
}

type redirects []string

func (r *redirects) record(reason string) { *r = append(*r, reason) }

func newGuard(t *testing.T, token string, api *fakeAPI) (*Guard, *memoryStore, *redirects) {
	t.Helper()
	store := &memoryStore{token: token}
	sess, err := Open(store)
	require.NoError(t, err)
	var r redirects
	return NewGuard(sess, store, api, r.record), store, &r
}

func TestVerifyWithoutTokenMakesNoCall(t *testing.T) {
	api := &fakeAPI{}
	g, _, r := newGuard(t, "", api)

	require.False(t, g.Verify(context.Background()))
	require.Zero(t, api.verifyCalls)
	require.Equal(t, redirects{ReasonNoSession}, *r)
	require.False(t, g.Verified())
}

func TestVerifySuccess(t *testing.T) {
	api := &fakeAPI{}
	g, store, r := newGuard(t, "tok", api)

	require.True(t, g.Verify(context.Background()))
	require.Equal(t, 1, api.verifyCalls)
	require.Empty(t, *r)
	require.Equal(t, "tok", store.token)
	require.True(t, g.Verified())
}

func TestVerifyFailureClearsToken(t *testing.T) {
	for name, verifyErr := range map[string]error{
		"rejected":  errors.New("Invalid session"),
		"transport": errors.New("connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			g, store, r := newGuard(t, "tok", &fakeAPI{verifyErr: verifyErr})

			require.False(t, g.Verify(context.Background()))
			require.Empty(t, store.token)
			require.Equal(t, 1, store.cleared)
			require.Equal(t, redirects{ReasonExpired}, *r)

			_, ok := g.Session().Token()
			require.False(t, ok)
		})
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	api := &fakeAPI{logoutErr: errors.New("network down")}
	g, store, r := newGuard(t, "tok", api)

	g.Logout(context.Background())

	require.Equal(t, 1, api.logoutCalls)
	require.Empty(t, store.token)
	require.Equal(t, redirects{ReasonLogout}, *r)
	_, ok := g.Session().Token()
	require.False(t, ok)
}

func TestLogoutWithoutTokenSkipsBackend(t *testing.T) {
	api := &fakeAPI{}
	g, _, r := newGuard(t, "", api)

	g.Logout(context.Background())

	require.Zero(t, api.logoutCalls)
	require.Equal(t, redirects{ReasonLogout}, *r)
}

func TestExpire(t *testing.T) {
	g, store, r := newGuard(t, "tok", &fakeAPI{})
	require.True(t, g.Verify(context.Background()))

	g.Expire()

	require.Empty(t, store.token)
	require.False(t, g.Verified())
	require.Equal(t, redirects{ReasonExpired}, *r)
}

func TestLogin(t *testing.T) {
	t.Run("stores token", func(t *testing.T) {
		api := &fakeAPI{loginResult: &models.LoginResult{Success: true, Token: "new-token", ExpiresIn: 86400}}
		g, store, _ := newGuard(t, "", api)

		require.NoError(t, g.Login(context.Background(), "admin", "secret"))
		require.Equal(t, "new-token", store.token)

		token, ok := g.Session().Token()
		require.True(t, ok)
		require.Equal(t, "new-token", token)
	})

	t.Run("rejected", func(t *testing.T) {
		api := &fakeAPI{loginErr: errors.New("Invalid credentials")}
		g, store, _ := newGuard(t, "", api)

		err := g.Login(context.Background(), "admin", "wrong")
		require.EqualError(t, err, "Invalid credentials")
		require.Empty(t, store.token)
	})

	t.Run("empty token", func(t *testing.T) {
		api := &fakeAPI{loginResult: &models.LoginResult{Success: true}}
		g, _, _ := newGuard(t, "", api)
		require.Error(t, g.Login(context.Background(), "admin", "secret"))
	})

	t.Run("save failure keeps session empty", func(t *testing.T) {
		api := &fakeAPI{loginResult: &models.LoginResult{Token: "t"}}
		g, store, _ := newGuard(t, "", api)
		store.saveErr = errors.New("disk full")

		require.Error(t, g.Login(context.Background(), "admin", "secret"))
		_, ok := g.Session().Token()
		require.False(t, ok)
	})
}
