package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-chat/backend/internal/config"
	"aria-chat/backend/internal/gateway"
	"aria-chat/backend/internal/model"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		AppPort:       0,
		StoreBackend:  backend,
		FlushDelay:    50 * time.Millisecond,
		LogLevel:      "DEBUG",
		ShutdownGrace: time.Second,
	}
}

func TestNewApp(t *testing.T) {
	sqliteCfg := testConfig(config.BackendSQLite)
	sqliteCfg.DatabasePath = filepath.Join(t.TempDir(), "aria.db")

	redisCfg := testConfig(config.BackendRedis)
	redisCfg.RedisAddr = miniredis.RunT(t).Addr()

	for name, cfg := range map[string]*config.Config{
		"memory": testConfig(config.BackendMemory),
		"sqlite": sqliteCfg,
		"redis":  redisCfg,
	} {
		t.Run(name, func(t *testing.T) {
			app, err := NewApp(cfg)
			require.NoError(t, err)
			require.NotNil(t, app.Server)

			rr := httptest.NewRecorder()
			app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = httptest.NewRecorder()
			app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/conversations/conv", strings.NewReader(`{"title": "Notes"}`)))
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = httptest.NewRecorder()
			app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/conversations/conv/messages/user", strings.NewReader(`{"content": "hello"}`)))
			assert.Equal(t, http.StatusCreated, rr.Code)

			require.NoError(t, app.Sessions.Close(context.Background()))
			messages, err := app.Gateway.GetMessages(context.Background(), "conv")
			require.NoError(t, err)
			assert.Len(t, messages, 1, "closing the sessions flushes them")

			require.NoError(t, app.Shutdown(context.Background()))
		})
	}
}

func TestOpener_MemoryStoreSurvivesWorkerRestart(t *testing.T) {
	ctx := context.Background()
	open, err := opener(testConfig(config.BackendMemory))
	require.NoError(t, err)
	gw := gateway.New(open)
	t.Cleanup(func() { _ = gw.Close() })

	h, err := gw.Store(ctx)
	require.NoError(t, err)
	require.NoError(t, gw.UpsertConversation(ctx, &model.Conversation{ID: "conv", Title: "Notes"}))
	require.NoError(t, h.Destroy())

	restarted, err := gw.Store(ctx)
	require.NoError(t, err)
	assert.NotSame(t, h, restarted)

	conv, err := gw.GetConversation(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, "Notes", conv.Title)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	_, err := NewApp(testConfig("postgres"))
	assert.ErrorContains(t, err, "postgres")
}

func TestApp_ServeStopsWithContext(t *testing.T) {
	app, err := NewApp(testConfig(config.BackendMemory))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, app.Serve(ctx))
}
