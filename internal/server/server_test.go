package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tour-stitcher/internal/assembler"
	"tour-stitcher/internal/database"
	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/handlers"
	"tour-stitcher/internal/metrics"
	"tour-stitcher/internal/models"
	"tour-stitcher/internal/partition"
	"tour-stitcher/internal/routing"
	fixtures "tour-stitcher/internal/testutil"
)

type testEnv struct {
	router    http.Handler
	db        *database.JSONStore
	collector *metrics.Collector
}

func newTestEnv(t *testing.T, factory assembler.SolverFactory) *testEnv {
	t.Helper()

	db, err := database.NewJSONStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if factory == nil {
		factory = func(dist distance.Calculator) routing.SubTourSolver {
			return routing.NewTwoOptSolver(dist, time.Second, zap.NewNop())
		}
	}

	p := partition.DefaultConfig()
	p.SingleClusterLimit = 50
	p.Bands = 4

	collector := metrics.NewCollector("test")
	asm := assembler.New(assembler.Options{
		Partition:     p,
		CacheLimit:    distance.DefaultCacheLimit,
		MarginX:       10,
		MarginY:       10,
		MaxExpansions: 1000,
		Workers:       2,
	}, factory, zap.NewNop(), collector)

	handler := &handlers.Handler{
		DB:           db,
		Assembler:    asm,
		Logger:       zap.NewNop(),
		MaxBodyBytes: 1 << 20,
	}

	return &testEnv{
		router:    NewRouter(handler, collector, zap.NewNop()),
		db:        db,
		collector: collector,
	}
}

func problemText(points []models.Point) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", len(points))
	for _, p := range points {
		fmt.Fprintf(&b, "%g %g\n", p.X, p.Y)
	}
	return b.String()
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateTour(t *testing.T) {
	env := newTestEnv(t, nil)
	points := fixtures.RandomPoints(120, 500, 1)

	rec := env.do(http.MethodPost, "/api/v1/tours", problemText(points))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp handlers.TourResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fixtures.RequirePermutation(t, resp.Tour, fixtures.Sequence(0, 120))
	assert.Greater(t, resp.Clusters, 1)
	assert.Greater(t, resp.Length, 0.0)
	assert.Empty(t, resp.RunID)

	_, total, err := env.db.Runs().List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateTour_TextFormat(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/tours?format=text", "3\n0 0\n3 0\n0 4\n")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "12.00 0", lines[0])
	assert.Len(t, strings.Fields(lines[1]), 3)
}

func TestCreateTour_RecordAndFetchRun(t *testing.T) {
	env := newTestEnv(t, nil)
	points := fixtures.RandomPoints(30, 100, 2)

	rec := env.do(http.MethodPost, "/api/v1/tours?record=true", problemText(points))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.TourResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)

	rec = env.do(http.MethodGet, "/api/v1/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, resp.RunID, run.ID)
	assert.Equal(t, 30, run.PointCount)
	assert.Equal(t, resp.Tour, run.Tour)

	rec = env.do(http.MethodGet, "/api/v1/runs/?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list handlers.RunListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 5, list.Limit)
	require.Len(t, list.Runs, 1)
	assert.Nil(t, list.Runs[0].Tour, "listings omit tours")

	rec = env.do(http.MethodDelete, "/api/v1/runs/"+resp.RunID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/runs/"+resp.RunID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTour_MalformedInput(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/tours", "2\n0 0\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "expected 2 points")
}

func TestCreateTour_NonFiniteCoordinates(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{"3\n0 0\n1 NaN\n2 2\n", "2\n0 0\nInf 1\n", "2\n-inf 0\n1 1\n"} {
		rec := env.do(http.MethodPost, "/api/v1/tours?record=true", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		var resp handlers.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "non-finite")
	}

	_, total, err := env.db.Runs().List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateTour_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)
	body := problemText(fixtures.RandomPoints(60000, 1e6, 3))

	rec := env.do(http.MethodPost, "/api/v1/tours", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type brokenSolver struct{}

func (brokenSolver) Solve(ctx context.Context, cluster models.Cluster) (*routing.SubTour, error) {
	ids := cluster.IDs()
	ids[len(ids)-1] = ids[0]
	return &routing.SubTour{Tour: ids}, nil
}

func TestCreateTour_ContractViolation(t *testing.T) {
	env := newTestEnv(t, func(distance.Calculator) routing.SubTourSolver { return brokenSolver{} })

	rec := env.do(http.MethodPost, "/api/v1/tours", problemText(fixtures.RandomPoints(10, 100, 4)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SOLVER_CONTRACT_VIOLATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "visited twice")
}

func TestListRuns_HugeLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 2; i++ {
		_, err := env.db.Runs().Create(context.Background(), &models.Run{PointCount: i})
		require.NoError(t, err)
	}

	rec := env.do(http.MethodGet, "/api/v1/runs/?limit=9223372036854775807&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list handlers.RunListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Runs, 1)
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected"}`, rec.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(env.collector.HTTPRequests.WithLabelValues("GET", "/health", "200")))

	rec = env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/tours", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	db, err := database.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	asm := assembler.New(assembler.Options{Partition: partition.DefaultConfig(), Workers: 1},
		func(dist distance.Calculator) routing.SubTourSolver {
			return routing.NewTwoOptSolver(dist, 0, zap.NewNop())
		}, zap.NewNop(), nil)

	srv := New(Config{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxBodyBytes: 1 << 20,
	}, db, asm, nil, zap.NewNop())

	addr, err := srv.Start()
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Post("http://"+addr+"/api/v1/tours", "text/plain", strings.NewReader("4\n0 0\n1 0\n1 1\n0 1\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
