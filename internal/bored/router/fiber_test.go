package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SakuraBurst/bored/internal/bored/config"
	"github.com/SakuraBurst/bored/internal/bored/controller"
	"github.com/SakuraBurst/bored/internal/bored/database/dbtest"
	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test"

type testApp struct {
	t      *testing.T
	router *HttpRouter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mem := dbtest.NewMemory()
	cfg := &config.Config{JWTSecret: testSecret, BcryptCost: bcrypt.MinCost, HttpPort: "3001"}
	reg := prometheus.NewRegistry()
	metrics, err := controller.NewMetrics(reg)
	require.NoError(t, err)
	var s controller.Service = controller.NewController(cfg, mem, mem, mem, mem, mem.Close)
	s = controller.InstrumentingMiddleware(metrics)(s)

	a := &testApp{t: t, router: CreateRouter(s, cfg, zap.NewNop(), reg)}
	for _, name := range []string{"u1", "u2", "u3"} {
		_, _, err := s.CreateNewUser(context.Background(), &types.RegisterRequest{
			UserName:  name,
			Password:  "password-" + name,
			FirstName: name + "F",
			LastName:  name + "L",
			Email:     name + "@user.com",
		})
		require.NoError(t, err)
	}
	return a
}

func (a *testApp) token(userName string) string {
	token, err := controller.CreateJWT([]byte(testSecret), userName, 0)
	require.NoError(a.t, err)
	return token
}

// do sends the request and decodes a JSON object body.
func (a *testApp) do(method, path string, body any, token string) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.router.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	result := map[string]any{}
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &result), string(raw))
	}
	return resp.StatusCode, result
}

func TestRegister(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(http.MethodPost, "/users/register", map[string]any{
		"username":  "T1",
		"firstName": "Test",
		"lastName":  "User",
		"password":  "tp12345",
		"email":     "test@gmail.com",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["token"])
	newUser := body["newUser"].(map[string]any)
	assert.Equal(t, "T1", newUser["username"])
	assert.Equal(t, float64(0), newUser["completedTasks"])
	assert.NotContains(t, newUser, "password")

	status, _ = a.do(http.MethodPost, "/users/register", map[string]any{"firstName": "Bad", "lastName": "Data"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(http.MethodPost, "/users/register", map[string]any{
		"username":  "u1",
		"firstName": "Other",
		"lastName":  "Person",
		"password":  "tp12345",
		"email":     "other@gmail.com",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])
}

func TestToken(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(http.MethodPost, "/users/token", map[string]any{"username": "u1", "password": "password-u1"}, "")
	require.Equal(t, http.StatusOK, status)
	token, ok := body["token"].(string)
	require.True(t, ok)

	status, _ = a.do(http.MethodPatch, "/users/u1", map[string]any{"firstName": "New"}, token)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/users/token", map[string]any{"username": "u1", "password": "misinput"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPost, "/users/token", map[string]any{"username": "notarealuser", "password": "wrong"}, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodPost, "/users/token", map[string]any{"username": "u1"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetUser(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(http.MethodGet, "/users/u1", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{
		"user": map[string]any{
			"username":       "u1",
			"firstName":      "u1F",
			"lastName":       "u1L",
			"email":          "u1@user.com",
			"completedTasks": float64(0),
			"avatar":         nil,
			"activities":     []any{},
			"badges":         []any{},
		},
	}, body)

	status, _ = a.do(http.MethodGet, "/users/notausername", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateUser(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(http.MethodPatch, "/users/u2", map[string]any{"completedTasks": 1, "avatar": "cat.png"}, a.token("u2"))
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(1), user["completedTasks"])
	assert.Equal(t, "cat.png", user["avatar"])
	assert.Equal(t, "u2F", user["firstName"])

	status, _ = a.do(http.MethodPatch, "/users/u2", map[string]any{"firstName": "Jeff"}, a.token("u3"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPatch, "/users/u2", map[string]any{"firstName": "Jeff"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodPatch, "/users/u2", map[string]any{}, a.token("u2"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPatch, "/users/u2", map[string]any{"email": "broken"}, a.token("u2"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPatch, "/users/ghost", map[string]any{"firstName": "Jeff"}, a.token("ghost"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClearAvatar(t *testing.T) {
	a := newTestApp(t)
	token := a.token("u1")

	status, body := a.do(http.MethodPatch, "/users/u1", map[string]any{"avatar": "cat.png"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cat.png", body["user"].(map[string]any)["avatar"])

	status, body = a.do(http.MethodPatch, "/users/u1", map[string]any{"avatar": nil}, token)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Contains(t, user, "avatar")
	assert.Nil(t, user["avatar"])
	assert.Equal(t, "u1F", user["firstName"])

	status, _ = a.do(http.MethodPatch, "/users/u1", map[string]any{"avatar": strings.Repeat("a", 2049)}, token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouteParamsOutliveRequest(t *testing.T) {
	a := newTestApp(t)
	token := a.token("u1")

	status, _ := a.do(http.MethodPatch, "/users/u1", map[string]any{"firstName": "New"}, token)
	require.Equal(t, http.StatusOK, status)
	status, _ = a.do(http.MethodPost, "/tasks/u1/7", nil, token)
	require.Equal(t, http.StatusCreated, status)
	status, _ = a.do(http.MethodPost, "/collectedBadges/u1/1", nil, token)
	require.Equal(t, http.StatusCreated, status)

	// later requests reuse the buffers the earlier params were read from
	status, _ = a.do(http.MethodPost, "/users/token", map[string]any{"username": "u1", "password": "misinput"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	a.do(http.MethodGet, "/collectedBadges/u2", nil, "")
	a.do(http.MethodGet, "/tasks/u3", nil, "")
	a.do(http.MethodGet, "/leaderboard", nil, "")

	status, body := a.do(http.MethodGet, "/users/u1", nil, "")
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "u1", user["username"])
	assert.Equal(t, "New", user["firstName"])
	assert.Equal(t, []any{map[string]any{"taskID": float64(7), "username": "u1", "completed": false}}, user["activities"])
	require.Len(t, user["badges"], 1)

	status, _ = a.do(http.MethodPost, "/users/token", map[string]any{"username": "u1", "password": "password-u1"}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestOutOfRangeIDs(t *testing.T) {
	a := newTestApp(t)
	token := a.token("u1")

	status, body := a.do(http.MethodPost, "/tasks/u1/9999999999", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])

	status, _ = a.do(http.MethodPatch, "/tasks/u1/-9999999999", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPost, "/collectedBadges/u1/2147483648", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodDelete, "/tasks/u1/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPost, "/tasks/u1/2147483647", nil, token)
	assert.Equal(t, http.StatusCreated, status)
}

func TestDeleteUser(t *testing.T) {
	a := newTestApp(t)

	status, _ := a.do(http.MethodDelete, "/users/u2", nil, a.token("u3"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := a.do(http.MethodDelete, "/users/u2", nil, a.token("u2"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"deleted": "u2"}, body)

	status, _ = a.do(http.MethodDelete, "/users/u2", nil, a.token("u2"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOwnershipIndependentOfExistence(t *testing.T) {
	a := newTestApp(t)
	other := a.token("u3")

	requests := []struct {
		method, path string
	}{
		{http.MethodPatch, "/users/u1"},
		{http.MethodPatch, "/users/ghost"},
		{http.MethodDelete, "/users/u1"},
		{http.MethodDelete, "/users/ghost"},
		{http.MethodPost, "/tasks/u1/1"},
		{http.MethodPost, "/tasks/ghost/1"},
		{http.MethodPatch, "/tasks/u1/1"},
		{http.MethodPatch, "/tasks/ghost/1"},
		{http.MethodDelete, "/tasks/u1/1"},
		{http.MethodDelete, "/tasks/ghost/1"},
		{http.MethodPost, "/collectedBadges/u1/1"},
		{http.MethodPost, "/collectedBadges/ghost/1"},
	}
	for _, r := range requests {
		status, _ := a.do(r.method, r.path, map[string]any{"firstName": "X"}, other)
		assert.Equal(t, http.StatusBadRequest, status, r.method+" "+r.path)

		status, _ = a.do(r.method, r.path, map[string]any{"firstName": "X"}, "")
		assert.Equal(t, http.StatusUnauthorized, status, r.method+" "+r.path)

		status, _ = a.do(r.method, r.path, map[string]any{"firstName": "X"}, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, status, r.method+" "+r.path)
	}
}

func TestInvalidTokenIsAnonymousOnPublicRoutes(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(http.MethodGet, "/tasks/u1", nil, "not-a-jwt")
	assert.Equal(t, http.StatusOK, status)

	forged, err := controller.CreateJWT([]byte("other-secret"), "u1", 0)
	require.NoError(t, err)
	status, _ = a.do(http.MethodPost, "/tasks/u1/5", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskLifecycle(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(http.MethodPost, "/users/register", map[string]any{
		"username":  "alice",
		"firstName": "Alice",
		"lastName":  "Liddell",
		"password":  "wonderland",
		"email":     "alice@example.com",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	token := a.token("alice")

	status, body := a.do(http.MethodPost, "/tasks/alice/42", nil, token)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, map[string]any{"taskID": float64(42), "username": "alice", "completed": false}, body["newTask"])

	status, _ = a.do(http.MethodPost, "/tasks/alice/42", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(http.MethodGet, "/tasks/alice", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{map[string]any{"taskID": float64(42), "username": "alice", "completed": false}}, body["tasks"])

	status, body = a.do(http.MethodPatch, "/tasks/alice/42", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["task"].(map[string]any)["completed"])
	assert.Equal(t, float64(1), body["updatedUser"].(map[string]any)["completedTasks"])

	status, body = a.do(http.MethodGet, "/users/alice", nil, "")
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(1), user["completedTasks"])
	assert.Equal(t, []any{map[string]any{"taskID": float64(42), "username": "alice", "completed": true}}, user["activities"])

	status, _ = a.do(http.MethodPatch, "/tasks/alice/41", nil, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.do(http.MethodDelete, "/tasks/alice/42", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"deleted": "42 from alice"}, body)

	status, _ = a.do(http.MethodDelete, "/tasks/alice/42", nil, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodGet, "/tasks/NOTAUSER", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodPost, "/tasks/alice/not-a-number", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBadges(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(http.MethodPost, "/users/register", map[string]any{
		"username":  "bob",
		"firstName": "Bob",
		"lastName":  "Builder",
		"password":  "canwefixit",
		"email":     "bob@example.com",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	token := a.token("bob")

	status, body := a.do(http.MethodPost, "/collectedBadges/bob/1", nil, token)
	require.Equal(t, http.StatusCreated, status)
	newBadge := body["newBadge"].(map[string]any)
	assert.Equal(t, float64(1), newBadge["badgeId"])
	assert.Equal(t, "bob", newBadge["username"])

	status, _ = a.do(http.MethodPost, "/collectedBadges/bob/1", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodPost, "/collectedBadges/bob/999", nil, token)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.do(http.MethodGet, "/collectedBadges/bob", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{map[string]any{
		"badgeId":   float64(1),
		"unlockNum": float64(dbtest.Catalog[0].UnlockNum),
		"message":   dbtest.Catalog[0].Message,
	}}, body["badges"])

	status, _ = a.do(http.MethodGet, "/collectedBadges/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLeaderboard(t *testing.T) {
	a := newTestApp(t)
	for name, counter := range map[string]int{"u1": 10, "u2": 1, "u3": 504} {
		status, _ := a.do(http.MethodPatch, "/users/"+name, map[string]any{"completedTasks": counter}, a.token(name))
		require.Equal(t, http.StatusOK, status)
	}

	status, body := a.do(http.MethodGet, "/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, status)
	leaderboard := body["leaderboard"].([]any)
	require.Len(t, leaderboard, 3)
	var order []float64
	for _, entry := range leaderboard {
		order = append(order, entry.(map[string]any)["completedTasks"].(float64))
	}
	assert.Equal(t, []float64{504, 10, 1}, order)
}

func TestUnmatchedRoute(t *testing.T) {
	a := newTestApp(t)
	status, body := a.do(http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]any{"status": "error", "message": "Not Found"}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)
	a.do(http.MethodGet, "/leaderboard", nil, "")

	resp, err := a.router.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `bored_requests_total{method="get_leaderboard",outcome="success"} 1`)
}
