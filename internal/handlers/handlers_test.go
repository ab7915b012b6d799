package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/config"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore/badgerstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/dto"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/follow"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/moodlist"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/routes"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/services"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/users"
)

const secret = "test-secret"

type testServer struct {
	app       *fiber.App
	directory *users.Directory
	graph     *follow.Graph
}

func newServer(t *testing.T, usernames ...string) *testServer {
	t.Helper()
	backend, err := badgerstore.Open("")
	require.NoError(t, err)
	store := docstore.New(backend, nil)
	t.Cleanup(func() { _ = store.Close() })

	graph := follow.NewGraph(store, nil)
	directory := users.NewDirectory(store, graph, nil)
	for _, u := range usernames {
		_, err := directory.Register(context.Background(), u, "")
		require.NoError(t, err)
	}

	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	filter := services.NewContentFilter()
	factory := moodlist.NewFactory(moodlist.Config{Store: store, Graph: graph})

	app := fiber.New()
	routes.Setup(app, cfg,
		handlers.NewAuthHandler(nil, filter),
		handlers.NewHealthHandler(nil, store.Ping),
		handlers.NewMoodHandler(factory, filter),
		handlers.NewFollowHandler(graph),
		handlers.NewUserHandler(directory, filter),
	)
	return &testServer{app: app, directory: directory, graph: graph}
}

func token(t *testing.T, username string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      uuid.NewString(),
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, as, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, as))
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) moods(t *testing.T, as, query string) dto.MoodListResponse {
	t.Helper()
	status, body := s.do(t, as, http.MethodGet, "/api/moods?"+query, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	var resp dto.MoodListResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func (s *testServer) post(t *testing.T, as string, req dto.CreateMoodRequest) mood.MoodEvent {
	t.Helper()
	status, body := s.do(t, as, http.MethodPost, "/api/moods", req)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var ev mood.MoodEvent
	require.NoError(t, json.Unmarshal(body, &ev))
	return ev
}

func at(hoursAgo int) *time.Time {
	ts := time.Now().UTC().Add(-time.Duration(hoursAgo) * time.Hour).Truncate(time.Second)
	return &ts
}

func TestMoodLifecycle(t *testing.T) {
	s := newServer(t, "ana")

	older := s.post(t, "ana", dto.CreateMoodRequest{EmotionalState: "sadness", Timestamp: at(5), Trigger: "rain"})
	newer := s.post(t, "ana", dto.CreateMoodRequest{EmotionalState: "HAPPINESS", Timestamp: at(1)})
	assert.NotEmpty(t, older.ID)
	assert.Equal(t, "ana", newer.Username)

	list := s.moods(t, "ana", "view=personal-modifiable")
	require.Equal(t, 2, list.Count)
	assert.Equal(t, newer.ID, list.Moods[0].ID)
	assert.Equal(t, older.ID, list.Moods[1].ID)

	status, body := s.do(t, "ana", http.MethodPatch, "/api/moods/"+older.ID, map[string]any{"emotional_state": "fear"})
	require.Equal(t, fiber.StatusOK, status, string(body))

	byState := s.moods(t, "ana", "view=personal-by-state&state=FEAR")
	require.Equal(t, 1, byState.Count)
	assert.Equal(t, older.ID, byState.Moods[0].ID)
	assert.Equal(t, mood.Fear, byState.Moods[0].EmotionalState)

	status, _ = s.do(t, "ana", http.MethodDelete, "/api/moods/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, "ana", http.MethodDelete, "/api/moods/"+newer.ID, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, s.moods(t, "ana", "view=personal-modifiable").Count)
}

func TestMoodRequestsRejected(t *testing.T) {
	s := newServer(t, "ana")

	status, _ := s.do(t, "", http.MethodGet, "/api/moods?view=personal-modifiable", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, "ana", http.MethodGet, "/api/moods?view=everything", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "ana", http.MethodGet, "/api/moods?view=map-close", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "ana", http.MethodGet, "/api/moods?view=personal-by-reason&reason=%20", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "ana", http.MethodPost, "/api/moods", dto.CreateMoodRequest{EmotionalState: "bored"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "ana", http.MethodPost, "/api/moods", dto.CreateMoodRequest{EmotionalState: "ANGER", Trigger: "a scam call"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = s.do(t, "ana", http.MethodPatch, "/api/moods/nope", map[string]any{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "ana", http.MethodPatch, "/api/moods/nope", map[string]any{"trigger": "work"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestMapCloseOverHTTP(t *testing.T) {
	s := newServer(t, "ana", "bob")
	lat, lon := 48.8566, 2.3522
	s.post(t, "bob", dto.CreateMoodRequest{EmotionalState: "SURPRISE", Latitude: &lat, Longitude: &lon})

	near := s.moods(t, "ana", "view=map-close&lat=48.86&lon=2.35")
	require.Equal(t, 1, near.Count)
	assert.Equal(t, "bob", near.Moods[0].Username)

	far := s.moods(t, "ana", "view=map-close&lat=40.71&lon=-74.0")
	assert.Zero(t, far.Count)
}

func TestFollowFlow(t *testing.T) {
	s := newServer(t, "ana", "bob")

	status, _ := s.do(t, "ana", http.MethodPost, "/api/follows/requests", dto.FollowRequestBody{Username: "ana"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.do(t, "ana", http.MethodPost, "/api/follows/requests", dto.FollowRequestBody{Username: "nobody"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body := s.do(t, "ana", http.MethodPost, "/api/follows/requests", dto.FollowRequestBody{Username: "bob"})
	require.Equal(t, fiber.StatusCreated, status, string(body))

	status, body = s.do(t, "bob", http.MethodGet, "/api/follows/requests", nil)
	require.Equal(t, fiber.StatusOK, status)
	var pending dto.UsernamesResponse
	require.NoError(t, json.Unmarshal(body, &pending))
	assert.Equal(t, []string{"ana"}, pending.Usernames)

	status, _ = s.do(t, "bob", http.MethodPost, "/api/follows/requests/ana/accept", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, "bob", http.MethodPost, "/api/follows/requests/ana/accept", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, "ana", http.MethodPost, "/api/follows/requests", dto.FollowRequestBody{Username: "bob"})
	assert.Equal(t, fiber.StatusConflict, status)

	s.post(t, "bob", dto.CreateMoodRequest{EmotionalState: "SHAME", Timestamp: at(2)})
	feed := s.moods(t, "ana", "view=following")
	require.Equal(t, 1, feed.Count)
	assert.Equal(t, "bob", feed.Moods[0].Username)

	status, _ = s.do(t, "ana", http.MethodDelete, "/api/follows/following/bob", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Zero(t, s.moods(t, "ana", "view=following").Count)
}

func TestDenyRequest(t *testing.T) {
	s := newServer(t, "ana", "bob")
	require.NoError(t, s.graph.CreateFollowRequest(context.Background(), "ana", "bob"))

	status, _ := s.do(t, "bob", http.MethodPost, "/api/follows/requests/ana/deny", nil)
	require.Equal(t, fiber.StatusOK, status)

	following, err := s.graph.Followings(context.Background(), "ana")
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestUsers(t *testing.T) {
	s := newServer(t, "ana", "anabel", "bob")

	status, body := s.do(t, "ana", http.MethodGet, "/api/users?q=ANA", nil)
	require.Equal(t, fiber.StatusOK, status)
	var found dto.UserSearchResponse
	require.NoError(t, json.Unmarshal(body, &found))
	require.Equal(t, 1, found.Count)
	assert.Equal(t, "anabel", found.Users[0].Username)

	status, body = s.do(t, "ana", http.MethodPatch, "/api/users/me", dto.RenameRequest{Name: "Ana María"})
	require.Equal(t, fiber.StatusOK, status, string(body))

	status, body = s.do(t, "bob", http.MethodGet, "/api/users/ana", nil)
	require.Equal(t, fiber.StatusOK, status)
	var u users.User
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "Ana María", u.Name)

	status, _ = s.do(t, "bob", http.MethodGet, "/api/users/ghost", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, "ana", http.MethodPatch, "/api/users/me", dto.RenameRequest{Name: "visit www.spam.example"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("closed") }

	app.Get("/ok", handlers.NewHealthHandler(ok, ok).Check)
	app.Get("/down", handlers.NewHealthHandler(ok, down).Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/down", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy: closed", body.Store)
}
