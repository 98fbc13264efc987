package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/nward/askbox/internal/api"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/service"
	"github.com/nward/askbox/internal/session"
	"github.com/nward/askbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server    *httptest.Server
	client    *http.Client
	anonymous *http.Client
	moderator *testutil.FakeModerator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := testutil.TestConfig()
	repos := testutil.NewFakeRepositories()
	broker := realtime.NewBroker()
	moderator := testutil.NewFakeModerator()

	sessions := session.NewStore(cfg, repos.Session, testutil.NewTestRedis(t))
	services := service.NewServices(repos, cfg, moderator, broker)
	manager := realtime.NewManager(realtime.NewStoreBackend(repos), broker)

	server := httptest.NewServer(api.NewRouter(services, manager, sessions))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &apiFixture{
		server:    server,
		client:    &http.Client{Jar: jar},
		anonymous: &http.Client{},
		moderator: moderator,
	}
}

func (f *apiFixture) do(t *testing.T, client *http.Client, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) signup(t *testing.T, username string) {
	t.Helper()

	status := f.do(t, f.client, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
}

func TestAPI_SignupLoginMe(t *testing.T) {
	f := newAPIFixture(t)

	var created map[string]any
	status := f.do(t, f.client, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"username": "sarah",
		"email":    "sarah@example.com",
		"password": "hunter22",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "sarah", created["username"])

	// signup already authenticated the session
	var me map[string]any
	status = f.do(t, f.client, http.MethodGet, "/api/v1/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sarah", me["username"])

	// a second signup with the same username conflicts
	status = f.do(t, f.anonymous, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"username": "sarah",
		"email":    "sarah2@example.com",
		"password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// without the cookie, me is anonymous
	status = f.do(t, f.anonymous, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_AskAnswerFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	// anyone can ask, no cookie needed
	var question map[string]any
	status := f.do(t, f.anonymous, http.MethodPost, "/api/v1/users/sarah/questions", map[string]string{
		"questionText": "coffee or tea?",
	}, &question)
	require.Equal(t, http.StatusCreated, status)
	questionID := question["id"].(string)

	// the unanswered question is not public yet
	var answered []map[string]any
	status = f.do(t, f.anonymous, http.MethodGet, "/api/v1/users/sarah/questions", nil, &answered)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, answered)

	// but it is in the owner's inbox
	var inbox []map[string]any
	status = f.do(t, f.client, http.MethodGet, "/api/v1/questions", nil, &inbox)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, inbox, 1)

	// the inbox requires authentication
	status = f.do(t, f.anonymous, http.MethodGet, "/api/v1/questions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// answering surfaces the owner's public profile path
	var answerResp map[string]any
	status = f.do(t, f.client, http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/answer", questionID), map[string]string{
		"answerText": "coffee, always",
	}, &answerResp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/u/sarah", answerResp["profilePath"])

	// answering twice conflicts
	status = f.do(t, f.client, http.MethodPost, fmt.Sprintf("/api/v1/questions/%s/answer", questionID), map[string]string{
		"answerText": "tea, actually",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// now the answer is public
	status = f.do(t, f.anonymous, http.MethodGet, "/api/v1/users/sarah/questions", nil, &answered)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, answered, 1)
	assert.Equal(t, "coffee, always", answered[0]["answerText"])
}

func TestAPI_ModeratedProfileRejectsQuestion(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	status := f.do(t, f.client, http.MethodPut, "/api/v1/profile/moderation", map[string]bool{
		"enabled": true,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	f.moderator.Reject("harassment")
	status = f.do(t, f.anonymous, http.MethodPost, "/api/v1/users/sarah/questions", map[string]string{
		"questionText": "something vile",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	f.moderator.Approve()
	status = f.do(t, f.anonymous, http.MethodPost, "/api/v1/users/sarah/questions", map[string]string{
		"questionText": "what do you do for fun?",
	}, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestAPI_PublicProfileHidesEmail(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	var profile map[string]any
	status := f.do(t, f.anonymous, http.MethodGet, "/api/v1/users/sarah", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sarah", profile["username"])
	_, hasEmail := profile["email"]
	assert.False(t, hasEmail)

	status = f.do(t, f.anonymous, http.MethodGet, "/api/v1/users/nobody", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Logout(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	status := f.do(t, f.client, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = f.do(t, f.client, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// logging out again is harmless
	status = f.do(t, f.client, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_MetricsLabelRoutePatterns(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	status := f.do(t, f.anonymous, http.MethodGet, "/api/v1/users/sarah", nil, nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// requests are counted against the route pattern, never the raw path
	assert.Contains(t, string(body), `path="/api/v1/users/{username}/"`)
	assert.NotContains(t, string(body), "users/sarah")
}

func TestAPI_LogoutAllEndsOtherDevices(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "sarah")

	// second sign-in from another browser
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &http.Client{Jar: jar}

	status := f.do(t, other, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "sarah@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	status = f.do(t, other, http.MethodGet, "/api/v1/auth/me", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = f.do(t, f.client, http.MethodPost, "/api/v1/auth/logout-all", nil, nil)
	require.Equal(t, http.StatusOK, status)

	// both browsers are signed out
	status = f.do(t, f.client, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status = f.do(t, other, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// and anonymous callers cannot reach the endpoint at all
	status = f.do(t, f.anonymous, http.MethodPost, "/api/v1/auth/logout-all", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
