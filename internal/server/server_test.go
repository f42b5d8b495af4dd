package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tspga/internal/config"
	"github.com/copyleftdev/tspga/internal/logging"
	"github.com/copyleftdev/tspga/internal/optimization"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"

	cfg.GA.PopulationSize = 10
	cfg.GA.MaxGenerations = 20
	cfg.GA.CrossoverRate = 1.0
	cfg.GA.MutationRate = 0.1
	cfg.GA.CrossoverMode = "uox"
	cfg.GA.TournamentSize = 2
	cfg.GA.Seed = 7

	cfg.Jobs.MaxConcurrent = 2
	return cfg
}

// testServer creates a server logging into a buffer and a router serving it
func testServer(t *testing.T, cfg *config.Config) (*Server, http.Handler) {
	t.Helper()
	logger := logging.New(logging.InfoLevel, &bytes.Buffer{})

	srv, err := NewServer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, reader))

	var out map[string]interface{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

var square = [][]float64{{0, 0}, {1, 1}, {1, 0}, {0, 1}}

func TestNewServer(t *testing.T) {
	logger := logging.New(logging.InfoLevel, &bytes.Buffer{})

	srv, err := NewServer(testConfig(t), logger)
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.Equal(t, 2, cap(srv.slots))

	bad := testConfig(t)
	bad.GA.CrossoverMode = "cycle"
	_, err = NewServer(bad, logger)
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/solve", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/solve/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Registered by cmd/server
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader("")))

			// The handlers themselves answer 404 for unknown jobs, so only a
			// plain-text router 404 means the route is missing.
			routed := rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") == "application/json"
			assert.Equal(t, tt.shouldExist, routed)
		})
	}
}

func TestSolveLifecycle(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr, body := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{
		"name":   "square4",
		"points": square,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	id, _ := body["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "pending", body["status"])

	var status map[string]interface{}
	require.Eventually(t, func() bool {
		_, status = do(t, r, http.MethodGet, "/api/v1/status/"+id, nil)
		return status["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "square4", status["name"])
	assert.Equal(t, 1.0, status["progress"])
	assert.Equal(t, float64(20), status["generation"])
	assert.NotEmpty(t, status["end_time"])

	history, ok := status["history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 21)

	best, ok := status["best_solution"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 4.0, best["value"], 1e-9)
	assert.Len(t, best["tour"], 4)
	assert.Len(t, best["points"], 4)

	// finished jobs cannot be cancelled
	rr, _ = do(t, r, http.MethodDelete, "/api/v1/solve/"+id, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

// solveAndWait submits points and waits for the job to reach a terminal status.
func solveAndWait(t *testing.T, h http.Handler, name string) string {
	t.Helper()
	rr, body := do(t, h, http.MethodPost, "/api/v1/solve", map[string]interface{}{
		"name":   name,
		"points": square,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	id := body["job_id"].(string)

	require.Eventually(t, func() bool {
		_, status := do(t, h, http.MethodGet, "/api/v1/status/"+id, nil)
		return status["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)
	return id
}

func TestFinishedJobsAreCapped(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.MaxRetained = 1
	_, r := testServer(t, cfg)

	first := solveAndWait(t, r, "first")
	second := solveAndWait(t, r, "second")

	rr, _ := do(t, r, http.MethodGet, "/api/v1/status/"+first, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = do(t, r, http.MethodGet, "/api/v1/status/"+second, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestFinishedJobsExpire(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.Retention = 20 * time.Millisecond
	srv, r := testServer(t, cfg)

	first := solveAndWait(t, r, "first")
	time.Sleep(50 * time.Millisecond)

	second := solveAndWait(t, r, "second")

	srv.jobsMu.RLock()
	_, firstKept := srv.jobs[first]
	_, secondKept := srv.jobs[second]
	srv.jobsMu.RUnlock()
	assert.False(t, firstKept)
	assert.True(t, secondKept)
}

func TestSolveOverridesDefaults(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr, body := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{
		"points":          square,
		"population_size": 6,
		"max_generations": 3,
		"crossover_mode":  "pmx",
		"mutation_rate":   0.0,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	_, status := do(t, r, http.MethodGet, "/api/v1/status/"+body["job_id"].(string), nil)
	cfg := status["config"].(map[string]interface{})
	assert.Equal(t, float64(6), cfg["population_size"])
	assert.Equal(t, float64(3), cfg["max_generations"])
	assert.Equal(t, "pmx", cfg["crossover_mode"])
	assert.Equal(t, 0.0, cfg["mutation_rate"])
	assert.Equal(t, 1.0, cfg["crossover_rate"])
}

func TestSolveRejectsBadRequests(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	tests := []struct {
		name string
		body interface{}
	}{
		{"no points", map[string]interface{}{"points": [][]float64{}}},
		{"single point", map[string]interface{}{"points": [][]float64{{1, 2}}}},
		{"point arity", map[string]interface{}{"points": [][]float64{{1, 2, 3}, {0, 0}}}},
		{"odd population", map[string]interface{}{"points": square, "population_size": 7}},
		{"unknown mode", map[string]interface{}{"points": square, "crossover_mode": "ox"}},
		{"rate out of range", map[string]interface{}{"points": square, "crossover_rate": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, r, http.MethodPost, "/api/v1/solve", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NotEmpty(t, body["error"])
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/solve", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusAndCancelUnknownJob(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	rr, _ := do(t, r, http.MethodGet, "/api/v1/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = do(t, r, http.MethodDelete, "/api/v1/solve/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelRunningJob(t *testing.T) {
	cfg := testConfig(t)
	cfg.GA.MaxGenerations = 500_000
	_, r := testServer(t, cfg)

	_, body := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{"points": square})
	id := body["job_id"].(string)

	require.Eventually(t, func() bool {
		_, status := do(t, r, http.MethodGet, "/api/v1/status/"+id, nil)
		return status["status"] == "running"
	}, 5*time.Second, 5*time.Millisecond)

	rr, body := do(t, r, http.MethodDelete, "/api/v1/solve/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "cancellation requested", body["status"])

	_, status := do(t, r, http.MethodGet, "/api/v1/status/"+id, nil)
	assert.Equal(t, "cancelled", status["status"])
	assert.NotEmpty(t, status["end_time"])
}

func TestConcurrencyLimitQueuesJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.GA.MaxGenerations = 500_000
	cfg.Jobs.MaxConcurrent = 1
	srv, r := testServer(t, cfg)

	_, first := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{"points": square})
	_, second := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{"points": square})
	firstID, secondID := first["job_id"].(string), second["job_id"].(string)

	require.Eventually(t, func() bool {
		_, status := do(t, r, http.MethodGet, "/api/v1/status/"+firstID, nil)
		return status["status"] == "running"
	}, 5*time.Second, 5*time.Millisecond)

	_, status := do(t, r, http.MethodGet, "/api/v1/status/"+secondID, nil)
	assert.Equal(t, "pending", status["status"])

	// a queued job can be cancelled before it ever runs
	require.NoError(t, srv.cancelJob(secondID))
	require.NoError(t, srv.cancelJob(firstID))
	require.NoError(t, srv.Close())

	_, status = do(t, r, http.MethodGet, "/api/v1/status/"+secondID, nil)
	assert.Equal(t, "cancelled", status["status"])
	assert.Nil(t, status["history"])
}

func rpc(t *testing.T, h http.Handler, method string, params interface{}) map[string]interface{} {
	t.Helper()
	rr, body := do(t, h, http.MethodPost, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	return body
}

func TestJSONRPCLifecycle(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	resp := rpc(t, r, "tsp.solve", []interface{}{map[string]interface{}{"points": square, "crossover_mode": "1"}})
	require.Nil(t, resp["error"])
	result := resp["result"].(map[string]interface{})
	id := result["job_id"].(string)

	require.Eventually(t, func() bool {
		resp := rpc(t, r, "tsp.status", map[string]interface{}{"job_id": id})
		result, ok := resp["result"].(map[string]interface{})
		return ok && result["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	resp = rpc(t, r, "tsp.cancel", map[string]interface{}{"job_id": id})
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, float64(rpcServerError), errObj["code"])
	assert.Contains(t, errObj["message"], "already finished")
}

func TestJSONRPCErrors(t *testing.T) {
	_, r := testServer(t, testConfig(t))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, rpcParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tsp.status"}`, rpcInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"tsp.nope"}`, rpcMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"tsp.status"}`, rpcInvalidParams},
		{"missing job id", `{"jsonrpc":"2.0","id":1,"method":"tsp.cancel","params":{}}`, rpcInvalidParams},
		{"bad solve", `{"jsonrpc":"2.0","id":1,"method":"tsp.solve","params":{"points":[[0,0]]}}`, rpcInvalidParams},
		{"unknown job", `{"jsonrpc":"2.0","id":1,"method":"tsp.status","params":{"job_id":"x"}}`, rpcServerError},
		{"body too large", `{"jsonrpc":"2.0","id":1,"method":"` + strings.Repeat("a", maxBodyBytes) + `"}`, rpcInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(tt.body)))
			require.Equal(t, http.StatusOK, rr.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			errObj, ok := resp["error"].(map[string]interface{})
			require.True(t, ok, rr.Body.String())
			assert.Equal(t, float64(tt.code), errObj["code"])
		})
	}
}

func TestRespondWithError(t *testing.T) {
	srv, _ := testServer(t, testConfig(t))

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
	}{
		{"string id", rpcInvalidParams, "invalid input", "123", "123"},
		{"nil id", rpcServerError, "server error", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			// Errors travel in the body of a 200 response
			assert.Equal(t, http.StatusOK, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

			errObj, ok := response["error"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, float64(tt.code), errObj["code"])
			assert.Equal(t, tt.message, errObj["message"])
			assert.Equal(t, tt.expectedID, response["id"])
		})
	}
}

func TestClose(t *testing.T) {
	srv, _ := testServer(t, testConfig(t))
	assert.NoError(t, srv.Close())
}

func TestCompletedJobWritesReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Dir = t.TempDir()
	_, r := testServer(t, cfg)

	_, body := do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{"name": "square4", "points": square})
	id := body["job_id"].(string)

	var status map[string]interface{}
	require.Eventually(t, func() bool {
		_, status = do(t, r, http.MethodGet, "/api/v1/status/"+id, nil)
		return status["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	path, _ := status["report"].(string)
	require.Equal(t, filepath.Join(cfg.Report.Dir, id+".txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "NAME: square4\nNUMBER OF GENERATIONS: 20\n"))
}

// panicOptimizer stands in for a run whose distance lookups fail.
type panicOptimizer struct{}

func (panicOptimizer) Optimize(context.Context) (*optimization.OptimizationResult, error) {
	panic(optimization.WrapError(optimization.ErrIndexOutOfRange, "index 9 not in [0, 4)"))
}
func (panicOptimizer) GetBestSolution() *optimization.Solution { return nil }
func (panicOptimizer) GetHistory() []optimization.Evaluation   { return nil }
func (panicOptimizer) Stop()                                   {}

func TestJobPanicMarksFailed(t *testing.T) {
	var logs bytes.Buffer
	srv, err := NewServer(testConfig(t), logging.New(logging.InfoLevel, &logs))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	state := &JobState{
		ID:        "panicky",
		Status:    optimization.StatusPending,
		optimizer: panicOptimizer{},
		cancel:    cancel,
	}
	srv.jobs[state.ID] = state

	srv.wg.Add(1)
	srv.runJob(ctx, state)

	status, err := srv.jobStatus(state.ID)
	require.NoError(t, err)
	assert.Equal(t, optimization.StatusFailed, status["status"])
	assert.Contains(t, status["error"], "point index out of range")
	assert.Contains(t, logs.String(), "Recovered from panic in job")
	assert.Empty(t, srv.slots, "slot released")
}
