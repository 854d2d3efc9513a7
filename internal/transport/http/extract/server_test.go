package extracthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stratex/internal/pipeline"
	"stratex/internal/store/runlog"
	"stratex/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pipeline.Response), args.Error(1)
}

type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) Get(ctx context.Context, runID string) (runlog.Record, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(runlog.Record), args.Error(1)
}

func (m *MockRunStore) Recent(ctx context.Context, limit int) ([]runlog.Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]runlog.Record), args.Error(1)
}

func newTestServer(t *testing.T, runner Runner, runs RunStore) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Runner: runner, Runs: runs, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	return srv.Handler()
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServer_RequiresRunner(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestExtract_Success(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, pipeline.Request{URL: "https://youtu.be/dQw4w9WgXcQ"}).
		Return(pipeline.Response{RunID: "r1", Status: types.StatusSuccess, Reason: "ok", Debug: &types.DebugInfo{}}, nil).Once()

	w := post(newTestServer(t, runner, nil), `{"url": "https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body, "debug")
	assert.Contains(t, body, "strategy")
	runner.AssertExpectations(t)
}

func TestExtract_StatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{types.NewStageError(types.KindInput, "input_validation", errors.New("missing")), http.StatusBadRequest},
		{types.NewStageError(types.KindUpstreamRateLimited, "unified_extraction", errors.New("429")), http.StatusTooManyRequests},
		{types.NewStageError(types.KindUpstreamBillingExhausted, "strategy_extraction", errors.New("402")), http.StatusPaymentRequired},
		{types.NewStageError(types.KindUpstreamUnavailable, "methodology_detection", errors.New("503")), http.StatusInternalServerError},
		{errors.New("provider says: out of credits"), http.StatusPaymentRequired},
		{nil, http.StatusOK},
	}
	for _, tc := range cases {
		runner := new(MockRunner)
		runner.On("Run", mock.Anything, mock.Anything).Return(pipeline.Response{Status: types.StatusFailed}, tc.err).Once()
		w := post(newTestServer(t, runner, nil), `{"transcript": "x"}`)
		assert.Equal(t, tc.code, w.Code, "%v", tc.err)
	}
}

func TestExtract_BlockedIs200(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(pipeline.Response{Status: types.StatusBlocked, Reason: "low"}, nil).Once()
	w := post(newTestServer(t, runner, nil), `{"transcript": "x"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtract_InvalidBody(t *testing.T) {
	w := post(newTestServer(t, new(MockRunner), nil), `{"url": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"failed"`)
}

func TestExtract_PanicMappedByMessage(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("upstream rate limit exceeded")
	}).Return(pipeline.Response{}, nil).Once()

	w := post(newTestServer(t, runner, nil), `{"transcript": "x"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit")
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	w := httptest.NewRecorder()
	newTestServer(t, new(MockRunner), nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, allowHeaders, w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, allowMethods, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestStatusFromMessage(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusFromMessage("HTTP 429 Too Many Requests"))
	assert.Equal(t, http.StatusPaymentRequired, statusFromMessage("Payment required"))
	assert.Equal(t, http.StatusPaymentRequired, statusFromMessage("status 402"))
	assert.Equal(t, http.StatusInternalServerError, statusFromMessage("boom"))
}

func TestRuns(t *testing.T) {
	runs := new(MockRunStore)
	runs.On("Get", mock.Anything, "abc").Return(runlog.Record{RunID: "abc", Status: types.StatusWarning}, nil).Once()
	runs.On("Get", mock.Anything, "missing").Return(runlog.Record{}, runlog.ErrNotFound).Once()
	runs.On("Recent", mock.Anything, 5).Return([]runlog.Record{{RunID: "abc"}}, nil).Once()
	h := newTestServer(t, new(MockRunner), runs)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"runId":"abc"`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	runs.AssertExpectations(t)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, new(MockRunner), nil)
	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
