package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebot/console/internal/config"
	"github.com/aussiebot/console/internal/configtree"
	"github.com/aussiebot/console/internal/session"
	"github.com/aussiebot/console/internal/value"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/metrics"
)

type fakeMachine struct {
	snap       session.Snapshot
	dispatched []session.Event
}

func (f *fakeMachine) Snapshot() session.Snapshot { return f.snap }
func (f *fakeMachine) Dispatch(ev session.Event)   { f.dispatched = append(f.dispatched, ev) }

func testServer(t *testing.T, mach *fakeMachine) *Server {
	t.Helper()
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Service: "test"})
	m := metrics.NewMetrics(false, true, log)
	cfg := &config.AppConfig{
		ServiceName: "aussiebot-console",
		Security: config.SecurityConfig{
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			MaxRequestSize:     1 << 20,
		},
	}
	cfg.HTTP.Port = 0
	cfg.Metrics.ExposeMetrics = true
	return NewServer(cfg, mach, &m, log)
}

func TestSnapshotEndpoint(t *testing.T) {
	mach := &fakeMachine{snap: session.Snapshot{
		State:       "ready",
		Connected:   true,
		User:        "alice",
		Config:      configtree.NewTree(),
		Cursor:      configtree.NoSelection,
		ConfigValid: true,
	}}
	srv := testServer(t, mach)

	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"ready"`)
	assert.Contains(t, rec.Body.String(), `"user":"alice"`)
}

func TestEventEndpointDispatches(t *testing.T) {
	mach := &fakeMachine{}
	srv := testServer(t, mach)

	body := `{"type":"setField","field":"cooldown","value":{"Number":9}}`
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, mach.dispatched, 1)
	ev, ok := mach.dispatched[0].(session.SetField)
	require.True(t, ok)
	assert.Equal(t, "cooldown", ev.Field)
	assert.Equal(t, value.NewNumber(9), ev.Value)
}

func TestEventEndpointRejectsUnknownType(t *testing.T) {
	mach := &fakeMachine{}
	srv := testServer(t, mach)

	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{"type":"reboot"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown event type")
	assert.Empty(t, mach.dispatched)
}

func TestEventEndpointRejectsGarbage(t *testing.T) {
	mach := &fakeMachine{}
	srv := testServer(t, mach)

	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{{{`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, mach.dispatched)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want session.Event
	}{
		{"select user", `{"type":"selectUser","name":"alice"}`, session.SelectUser{Name: "alice"}},
		{"request code", `{"type":"requestCode"}`, session.RequestCode{}},
		{"submit code", `{"type":"submitCode","code":"1234"}`, session.SubmitCode{Code: "1234"}},
		{"select", `{"type":"select","cursor":{"category":1,"index":0}}`,
			session.Select{Cursor: configtree.Cursor{Category: configtree.CategoryFilters, Index: 0}}},
		{"delete", `{"type":"delete","cursor":{"category":0,"index":2}}`,
			session.Delete{Cursor: configtree.Cursor{Category: configtree.CategoryCommands, Index: 2}}},
		{"revert", `{"type":"revert"}`, session.Revert{}},
		{"add request", `{"type":"addRequest","category":2}`, session.AddRequest{Category: configtree.CategoryTimers}},
		{"add choose", `{"type":"addChoose","commandType":"Points"}`, session.AddChoose{Type: "Points"}},
		{"save", `{"type":"save"}`, session.Save{}},
		{"dismiss", `{"type":"dismiss"}`, session.Dismiss{}},
		{"discard and reload", `{"type":"discardAndReload"}`, session.DiscardAndReload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	mach := &fakeMachine{snap: session.Snapshot{State: "socketClosed", Connected: false}}
	srv := testServer(t, mach)
	router := srv.router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mach.snap.Connected = true
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointExposed(t *testing.T) {
	srv := testServer(t, &fakeMachine{})

	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console_")
}
