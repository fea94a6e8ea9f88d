package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/bartek5186/catalog2dw/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	err   error
	names []string
	got   pipeline.Event
}

func (m *mockRunner) Run(ctx context.Context, ev *pipeline.Event, names ...string) error {
	m.names = names
	m.got = *ev
	ev.RunID = "run-1"
	ev.Loaded = 7
	return m.err
}

type fixedStatus scheduler.Status

func (f fixedStatus) Status() scheduler.Status { return scheduler.Status(f) }

func init() {
	pipeline.Register("t-stage", nil)
}

func newRouter(r Runner, s StatusSource) *gin.Engine {
	return SetupRouter(gin.TestMode, zerolog.Nop(), NewHandler(zerolog.Nop(), r, s, "test"))
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newRouter(&mockRunner{}, nil), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestRunPipeline_PassesEventAndReturnsArtifacts(t *testing.T) {
	m := &mockRunner{}
	w := do(t, newRouter(m, nil), http.MethodPost, "/api/v1/pipeline",
		`{"max_pages":2,"day_count":0,"min_sales":1,"max_sales":3}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, pipeline.Full, m.names)
	assert.Equal(t, 2, m.got.MaxPages)
	require.NotNil(t, m.got.DayCount)
	assert.Equal(t, 0, *m.got.DayCount)
	assert.Equal(t, 3, *m.got.MaxSales)

	var ev pipeline.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, 7, ev.Loaded)
}

func TestRunStage(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		err      error
		wantCode int
	}{
		{"ok without body", "/api/v1/stages/t-stage", "", nil, http.StatusOK},
		{"ok with targets", "/api/v1/stages/t-stage", `{"products_target":"p.csv","sales_targets":["a.csv"]}`, nil, http.StatusOK},
		{"unknown stage", "/api/v1/stages/nope", "", nil, http.StatusNotFound},
		{"busy", "/api/v1/stages/t-stage", "", pipeline.ErrBusy, http.StatusConflict},
		{"failure", "/api/v1/stages/t-stage", "", errors.New("db gone"), http.StatusInternalServerError},
		{"bad json", "/api/v1/stages/t-stage", `{"max_pages":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRunner{err: tt.err}
			w := do(t, newRouter(m, nil), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, []string{"t-stage"}, m.names)
			}
		})
	}
}

func TestSchedulerStatus(t *testing.T) {
	w := do(t, newRouter(&mockRunner{}, fixedStatus{Running: true, Interval: time.Hour, Ticks: 4}), http.MethodGet, "/api/v1/scheduler", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var st scheduler.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.Equal(t, time.Hour, st.Interval)
	assert.EqualValues(t, 4, st.Ticks)

	w = do(t, newRouter(&mockRunner{}, nil), http.MethodGet, "/api/v1/scheduler", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)
}
