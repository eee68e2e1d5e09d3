package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/course-chat/config"
	"github.com/example/course-chat/modules/activity"
	"github.com/example/course-chat/modules/auth"
	"github.com/example/course-chat/modules/broadcast"
	"github.com/example/course-chat/modules/chat"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// fakeActivity implements ActivityPort for testing
type fakeActivity struct {
	rooms map[string]activity.RoomActivity
	err   error
}

func (f *fakeActivity) GetRoomActivity(_ context.Context, roomID string) (activity.RoomActivity, bool, error) {
	if f.err != nil {
		return activity.RoomActivity{}, false, f.err
	}
	a, ok := f.rooms[roomID]
	return a, ok, nil
}

func (f *fakeActivity) ListRoomActivity(_ context.Context) ([]activity.RoomActivity, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make([]activity.RoomActivity, 0, len(f.rooms))
	for _, a := range f.rooms {
		result = append(result, a)
	}
	return result, nil
}

const testSecret = "test-secret-key"

func testConfig() config.Config {
	return config.Config{
		Port:               "0",
		CORSAllowedOrigins: "*",
		ShutdownTimeout:    time.Second,
		JWTSecret:          testSecret,
		JWTIssuer:          "test-issuer",
		SendBuffer:         64,
		MaxMessageLength:   4096,
		MaxFrameBytes:      16384,
		RateBurst:          100,
		RatePerSecond:      100,
		PingPeriod:         54 * time.Second,
		PongWait:           60 * time.Second,
		WriteWait:          5 * time.Second,
	}
}

type testEnv struct {
	module *APIModule
	hub    *broadcast.Hub
	tokens *auth.JWTManager
	app    *fiber.App
	addr   string
}

// newTestEnv wires the module the way main does, minus the application
// container, and serves it on a random local port.
func newTestEnv(t *testing.T, cfg config.Config, opts ...chat.Option) *testEnv {
	t.Helper()

	logger := &mockLogger{}
	hub := broadcast.NewHub(logger)
	tokens := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		TokenDuration: time.Hour,
	})

	opts = append([]chat.Option{chat.WithSendBuffer(cfg.SendBuffer), chat.WithMaxMessageLength(cfg.MaxMessageLength)}, opts...)
	m := NewModule(cfg, tokens, logger)
	m.SetHub(hub)
	m.SetManager(chat.NewManager(hub, logger, opts...))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := m.newApp()
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
	})

	return &testEnv{
		module: m,
		hub:    hub,
		tokens: tokens,
		app:    app,
		addr:   ln.Addr().String(),
	}
}

func decodeBody(t *testing.T, body io.Reader, v any) {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v), string(data))
}

func TestModule_Lifecycle(t *testing.T) {
	cfg := testConfig()
	m := NewModule(cfg, auth.NewJWTManager(auth.JWTConfig{SecretKey: testSecret}), &mockLogger{})

	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"activity"}, m.Dependencies())

	err := m.Start(context.Background())
	require.Error(t, err, "start must fail without a manager")

	hub := broadcast.NewHub(&mockLogger{})
	m.SetHub(hub)
	m.SetManager(chat.NewManager(hub, &mockLogger{}))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Health(context.Background()).Healthy)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
}

func TestModule_StopWithoutStart(t *testing.T) {
	m := NewModule(testConfig(), nil, &mockLogger{})
	assert.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, err := env.app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body HealthResponse
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.EqualValues(t, 0, body.Details["connected_clients"])
}

func TestChatRoute_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, err := env.app.Test(httptest.NewRequest("GET", "/ws/chat/101/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	var body ErrorResponse
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, "upgrade_required", body.Error)
}

func TestGetRoom(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name           string
		roomID         string
		activity       ActivityPort
		expectedStatus int
		expectActivity bool
	}{
		{
			name:           "unknown room",
			roomID:         "999",
			activity:       &fakeActivity{},
			expectedStatus: fiber.StatusNotFound,
		},
		{
			name:   "room with history but no members",
			roomID: "101",
			activity: &fakeActivity{rooms: map[string]activity.RoomActivity{
				"101": {RoomID: "101", Joins: 2, Leaves: 2, Messages: 3, Deliveries: 6, LastMessageAt: at},
			}},
			expectedStatus: fiber.StatusOK,
			expectActivity: true,
		},
		{
			name:           "activity unavailable",
			roomID:         "101",
			activity:       &fakeActivity{err: errors.New("bus down")},
			expectedStatus: fiber.StatusNotFound,
		},
		{
			name:           "no activity module",
			roomID:         "101",
			expectedStatus: fiber.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			env.module.activity = tt.activity

			resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/"+tt.roomID, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != fiber.StatusOK {
				return
			}

			var room RoomResponse
			decodeBody(t, resp.Body, &room)
			assert.Equal(t, tt.roomID, room.ID)
			if tt.expectActivity {
				require.NotNil(t, room.Activity)
				assert.Equal(t, 3, room.Activity.Messages)
				assert.Equal(t, 6, room.Activity.Deliveries)
				require.NotNil(t, room.Activity.LastMessageAt)
				assert.True(t, at.Equal(*room.Activity.LastMessageAt))
			}
		})
	}
}

func TestGetRoom_LiveMembers(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.module.activity = &fakeActivity{err: errors.New("bus down")}

	token, err := env.tokens.GenerateToken("42", "Alice")
	require.NoError(t, err)
	alice := dial(t, env.addr, "/ws/chat/101/?token="+token, nil)
	defer alice.Close()
	waitForMembers(t, env.hub, "101", 1)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/rooms/101", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var room RoomResponse
	decodeBody(t, resp.Body, &room)
	assert.Equal(t, 1, room.Members)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, "Alice", room.Participants[0].DisplayName)
	assert.Equal(t, "42", room.Participants[0].UserID)
	assert.Nil(t, room.Activity)
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.module.activity = &fakeActivity{rooms: map[string]activity.RoomActivity{
		"101": {RoomID: "101", Joins: 1, Messages: 4},
		"303": {RoomID: "303", Joins: 7},
	}}

	a := dial(t, env.addr, "/ws/chat/101/", nil)
	defer a.Close()
	b := dial(t, env.addr, "/ws/chat/202/", nil)
	defer b.Close()
	waitForMembers(t, env.hub, "101", 1)
	waitForMembers(t, env.hub, "202", 1)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/rooms", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list RoomListResponse
	decodeBody(t, resp.Body, &list)
	require.Equal(t, 2, list.Total)
	require.Len(t, list.Rooms, 2)

	assert.Equal(t, "101", list.Rooms[0].ID)
	assert.Equal(t, 1, list.Rooms[0].Members)
	require.NotNil(t, list.Rooms[0].Activity)
	assert.Equal(t, 4, list.Rooms[0].Activity.Messages)

	assert.Equal(t, "202", list.Rooms[1].ID)
	assert.Nil(t, list.Rooms[1].Activity)
}
