package api

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-strip/internal/database/models"
	"github.com/bbernstein/lacylights-strip/internal/database/repositories"
	"github.com/bbernstein/lacylights-strip/internal/services/control"
	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/modes"
	"github.com/bbernstein/lacylights-strip/internal/services/override"
	"github.com/bbernstein/lacylights-strip/internal/services/pubsub"
	"github.com/bbernstein/lacylights-strip/internal/services/settings"
	"github.com/bbernstein/lacylights-strip/internal/services/version"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// fakeDriver accepts up to limit writes.
type fakeDriver struct {
	mu     sync.Mutex
	limit  int
	writes []override.Write
}

func (d *fakeDriver) Submit(w override.Write) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limit > 0 && len(d.writes) >= d.limit {
		return false
	}
	d.writes = append(d.writes, w)
	return true
}

func (d *fakeDriver) Frames() uint64   { return 42 }
func (d *fakeDriver) Overruns() uint64 { return 1 }
func (d *fakeDriver) Dropped() uint64  { return 0 }
func (d *fakeDriver) Suppressed() bool { return false }

func (d *fakeDriver) Writes() (accepted, ignored uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.writes)), 3
}

type testEnv struct {
	server   *Server
	driver   *fakeDriver
	control  *control.Service
	settings *settings.Service
	ps       *pubsub.PubSub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the server with an optional Art-Net output.
func newTestEnvWith(t *testing.T, artnet ArtNet) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	params := generator.NewParams(4, 10000)
	table := modes.Default(params, rand.New(rand.NewPCG(1, 2)), modes.Options{Intervals: 1})
	store := settings.NewService(repositories.NewSettingRepository(db), modes.DefaultMode, 10000)
	ps := pubsub.New()
	ctl := control.NewService(table, params, store, ps)
	driver := &fakeDriver{}

	deps := Deps{
		Control: ctl,
		Driver:  driver,
		PubSub:  ps,
		Info:    version.New("1.2.3", "", ""),
	}
	if artnet != nil {
		deps.ArtNet = artnet
		deps.Broadcasts = store
	}

	return &testEnv{
		server:   NewServer(Config{CORSOrigin: "http://localhost:3000"}, deps),
		driver:   driver,
		control:  ctl,
		settings: store,
		ps:       ps,
	}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, uint64(42), body.Frames)
	assert.Equal(t, uint64(0), body.Accepted)
	assert.Equal(t, uint64(3), body.Ignored)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok: lacylights-strip 1.2.3\n", rec.Body.String())
}

func TestConfig_Get(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/cfg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"version":"1.2.3","cfg":{"mode":0,"modeName":"moving rainbow","cycleMs":10000}}`,
		rec.Body.String())
}

func TestConfig_Apply(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/cfg?mode=1&cycle=2500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"version":"1.2.3","cfg":{"mode":1,"modeName":"rainbow","cycleMs":2500}}`,
		rec.Body.String())

	// persisted
	stored, found, err := env.settings.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, stored.Mode)
	assert.Equal(t, uint32(2500), stored.CycleMs)
}

func TestConfig_PostForm(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/cfg", strings.NewReader("mode=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, env.control.Mode())
}

func TestConfig_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown parameter", "/cfg?speed=3"},
		{"mode not a number", "/cfg?mode=fast"},
		{"mode out of range", "/cfg?mode=999"},
		{"negative mode", "/cfg?mode=-1"},
		{"cycle too short", "/cfg?cycle=5"},
		{"negative cycle", "/cfg?cycle=-5"},
		{"repeated", "/cfg?mode=1&mode=2"},
		{"valid mode with bad cycle", "/cfg?mode=1&cycle=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(http.MethodGet, tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error: use mode,cycle\n", rec.Body.String())
			assert.Equal(t, 0, env.control.Mode())
			assert.Equal(t, uint32(10000), env.control.Cycle())
		})
	}
}

func TestModes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/modes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []modeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, len(env.control.Modes()))
	for i, m := range body {
		assert.Equal(t, i, m.Index)
	}
	assert.Equal(t, "moving rainbow", body[0].Name)
	assert.Equal(t, "off", body[len(body)-1].Name)
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/cfg?mode=3&cycle=100", "").Code)

	rec := env.do(http.MethodPost, "/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.control.Mode())
	assert.Equal(t, uint32(10000), env.control.Cycle())

	_, found, err := env.settings.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPixels(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/pixels", `[{"index":1,"r":255,"g":0,"b":10},{"index":3,"r":1,"g":2,"b":3}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":2,"dropped":0}`, rec.Body.String())

	require.Len(t, env.driver.writes, 2)
	assert.Equal(t, override.Write{Pixel: 1, Color: rgb.Color{R: 255, B: 10}}, env.driver.writes[0])
}

func TestPixels_Dropped(t *testing.T) {
	env := newTestEnv(t)
	env.driver.limit = 1

	rec := env.do(http.MethodPost, "/pixels", `[{"index":0},{"index":1},{"index":2}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":1,"dropped":2}`, rec.Body.String())
}

func TestPixels_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `[{index:1}`},
		{"object", `{"index":1}`},
		{"color out of range", `[{"index":1,"r":256}]`},
		{"unknown field", `[{"index":1,"w":3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodPost, "/pixels", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, env.driver.writes)
		})
	}
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// the current configuration comes first
	var state control.State
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, "moving rainbow", state.ModeName)

	// subscriptions are registered before the first message is sent
	require.True(t, env.ps.HasSubscribers(pubsub.TopicFrame))
	env.ps.Publish(pubsub.TopicFrame, rgb.Frame{rgb.White, {R: 0x12, G: 0x34, B: 0x56}})

	var frame []string
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, []string{"#ffffff", "#123456"}, frame)

	require.NoError(t, env.control.SetMode(context.Background(), 1))
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, 1, state.Mode)
}

func TestStream_UnsubscribesOnClose(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var state control.State
	require.NoError(t, conn.ReadJSON(&state))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return !env.ps.HasSubscribers(pubsub.TopicFrame)
	}, 2*time.Second, 10*time.Millisecond)
}
