package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/session"
	"github.com/nward/askbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*session.Store, *testutil.FakeSessionRepo) {
	t.Helper()

	cfg := testutil.TestConfig()
	sessions := testutil.NewFakeSessionRepo()
	return session.NewStore(cfg, sessions, testutil.NewTestRedis(t)), sessions
}

// carryCookies moves the cookies a recorder captured onto a fresh request,
// the way a browser would on the next navigation.
func carryCookies(t *testing.T, rec *httptest.ResponseRecorder, req *http.Request) {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(c)
		}
	}
}

func TestStore_CreateAuthenticateRoundTrip(t *testing.T) {
	store, sessions := newTestStore(t)
	ctx := context.Background()

	user := testutil.NewUserBuilder().User(t)

	rec := httptest.NewRecorder()
	signupReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", nil)
	signupReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh) Firefox/130.0")
	require.NoError(t, store.Create(ctx, rec, signupReq, user))

	assert.Equal(t, 1, sessions.Count())

	next := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	carryCookies(t, rec, next)

	principal, ok := store.Authenticate(ctx, next)
	require.True(t, ok)
	assert.Equal(t, user.ID, principal.UserID)
	assert.NotEqual(t, user.ID, principal.SessionID)
}

func TestStore_AuthenticateWithoutCookie(t *testing.T) {
	store, _ := newTestStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	principal, ok := store.Authenticate(context.Background(), req)
	assert.False(t, ok)
	assert.Nil(t, principal)
}

func TestStore_AuthenticateMalformedCookie(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := testutil.TestConfig()

	cases := []struct {
		name  string
		value string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"empty token", base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"x","idToken":""}`))},
		{"garbage jwt", base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"x","idToken":"abc.def.ghi"}`))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tc.value})

			principal, ok := store.Authenticate(context.Background(), req)
			assert.False(t, ok)
			assert.Nil(t, principal)
		})
	}
}

func TestStore_CookieUserMustMatchToken(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := testutil.TestConfig()
	ctx := context.Background()

	user := testutil.NewUserBuilder().User(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Create(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), user))

	var issued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cfg.CookieName {
			issued = c
		}
	}
	require.NotNil(t, issued)

	// splice a different userId around the same (still valid) token
	raw, err := base64.RawURLEncoding.DecodeString(issued.Value)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["userId"] = uuid.NewString()
	forged, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  cfg.CookieName,
		Value: base64.RawURLEncoding.EncodeToString(forged),
	})

	principal, ok := store.Authenticate(ctx, req)
	assert.False(t, ok)
	assert.Nil(t, principal)
}

func TestStore_ClearRevokesAndIsIdempotent(t *testing.T) {
	store, sessions := newTestStore(t)
	ctx := context.Background()

	user := testutil.NewUserBuilder().User(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Create(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), user))
	require.Equal(t, 1, sessions.Count())

	logout := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	carryCookies(t, rec, logout)

	clearRec := httptest.NewRecorder()
	store.Clear(ctx, clearRec, logout)
	assert.Equal(t, 0, sessions.Count())

	// the dropped cookie is expired
	var dropped *http.Cookie
	for _, c := range clearRec.Result().Cookies() {
		dropped = c
	}
	require.NotNil(t, dropped)
	assert.Less(t, dropped.MaxAge, 0)

	// the original token no longer authenticates even though it is unexpired
	replay := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(t, rec, replay)
	_, ok := store.Authenticate(ctx, replay)
	assert.False(t, ok)

	// clearing again, and clearing an anonymous request, are both no-ops
	store.Clear(ctx, httptest.NewRecorder(), logout)
	store.Clear(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, 0, sessions.Count())
}

func TestStore_ClearAllEndsEverySession(t *testing.T) {
	store, sessions := newTestStore(t)
	ctx := context.Background()

	user := testutil.NewUserBuilder().User(t)

	// the same user signed in from two devices
	laptop := httptest.NewRecorder()
	require.NoError(t, store.Create(ctx, laptop, httptest.NewRequest(http.MethodPost, "/", nil), user))
	phone := httptest.NewRecorder()
	require.NoError(t, store.Create(ctx, phone, httptest.NewRequest(http.MethodPost, "/", nil), user))
	require.Equal(t, 2, sessions.Count())

	logout := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout-all", nil)
	carryCookies(t, laptop, logout)
	store.ClearAll(ctx, httptest.NewRecorder(), logout, user.ID)

	assert.Equal(t, 0, sessions.Count())

	// both devices' still-unexpired tokens are dead
	for _, rec := range []*httptest.ResponseRecorder{laptop, phone} {
		replay := httptest.NewRequest(http.MethodGet, "/", nil)
		carryCookies(t, rec, replay)
		_, ok := store.Authenticate(ctx, replay)
		assert.False(t, ok)
	}
}

func TestStore_SweepExpiredDropsDeadRows(t *testing.T) {
	store, sessions := newTestStore(t)
	ctx := context.Background()

	user := testutil.NewUserBuilder().User(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Create(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), user))

	require.NoError(t, sessions.Create(ctx, &domain.UserSession{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}))
	require.Equal(t, 2, sessions.Count())

	require.NoError(t, store.SweepExpired(ctx))
	assert.Equal(t, 1, sessions.Count())

	// the live session is untouched
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(t, rec, next)
	_, ok := store.Authenticate(ctx, next)
	assert.True(t, ok)
}
