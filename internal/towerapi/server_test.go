package towerapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/encoder"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
	"github.com/slbailey/retrowaves-sub001/internal/fanout"
)

type fakeRing struct{ fill, capacity int }

func (f fakeRing) Fill() (int, int) { return f.fill, f.capacity }

func newTestServer() (*Server, *fallback.Manager) {
	b := fanout.New(fanout.DefaultConfig())
	fb := fallback.NewManager(fallback.Silence{})
	enc := encoder.NewManager(clock.Real{}, encoder.DefaultConfig())
	s := New(DefaultConfig(), b, fb, enc, fakeRing{fill: 3, capacity: 50}, time.Now())
	return s, fb
}

func TestStatus_ReportsSourceModeAndBufferState(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "silence", body.SourceMode)
	assert.Equal(t, 0, body.NumClients)
	assert.False(t, body.EncoderRunning)
	require.NotNil(t, body.RouterQueue)
	assert.Equal(t, 3, body.RouterQueue.Fill)
	assert.Equal(t, 50, body.RouterQueue.Capacity)
}

func TestTowerBuffer_ReportsFillAndCapacity(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/tower/buffer", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body bufferFill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, bufferFill{Fill: 3, Capacity: 50}, body)
}

func TestControlSource_SwitchesToTone(t *testing.T) {
	s, fb := newTestServer()

	reqBody, _ := json.Marshal(map[string]string{"mode": "tone"})
	req := httptest.NewRequest(http.MethodPost, "/control/source", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tone", fb.Mode())
}

func TestControlSource_RejectsUnknownMode(t *testing.T) {
	s, _ := newTestServer()

	reqBody, _ := json.Marshal(map[string]string{"mode": "laser"})
	req := httptest.NewRequest(http.MethodPost, "/control/source", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControlSource_FileModeRequiresFilePath(t *testing.T) {
	s, _ := newTestServer()

	reqBody, _ := json.Marshal(map[string]string{"mode": "file"})
	req := httptest.NewRequest(http.MethodPost, "/control/source", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics_ServesPrometheusFormat(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}
