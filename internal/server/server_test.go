package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/internal/chat"
	"github.com/aqua777/indexquery/internal/config"
	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/internal/registry"
	"github.com/aqua777/indexquery/rag/queryengine"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/schema"
)

const (
	testUser     = "demo"
	testPassword = "s3cret"
)

type stubEngine struct {
	answer string
	err    error

	mu      sync.Mutex
	queries []string
}

func (e *stubEngine) Query(ctx context.Context, query string) (*synthesizer.Response, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	node := schema.NewTextNode("Uber revenue in 2021 was 17.5 billion dollars.")
	node.Metadata[queryengine.MetadataKeyIndexName] = "2021"
	return synthesizer.NewResponse(e.answer, []schema.NodeWithScore{{Node: *node, Score: 0.9}}), nil
}

func (e *stubEngine) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) config.ServerConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         7860,
		Title:        "LLM Query with Custom Indexes",
		DefaultIndex: catalog.Mixed,
		Auth:         config.AuthConfig{User: testUser, PasswordHash: string(hash)},
	}
}

type testServer struct {
	*Server
	mixed *stubEngine
	graph *stubEngine
}

func newTestServer(t *testing.T, cfg config.ServerConfig, opts ...Option) *testServer {
	t.Helper()
	ts := &testServer{
		mixed: &stubEngine{answer: "mixed answer"},
		graph: &stubEngine{answer: "graph answer"},
	}
	reg, err := registry.New(map[string]queryengine.QueryEngine{
		catalog.GraphName: ts.graph,
		catalog.Mixed:     ts.mixed,
		"broken":          &stubEngine{err: errors.New("deployment unavailable")},
	}, []string{catalog.GraphName, catalog.Mixed, "broken"})
	require.NoError(t, err)

	h := chat.NewHandler(reg, chat.WithLogger(quiet))
	ts.Server, err = New(cfg, h, append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return ts
}

func (ts *testServer) do(req *http.Request, auth bool) *httptest.ResponseRecorder {
	if auth {
		req.SetBasicAuth(testUser, testPassword)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonQuery(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formQuery(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	t.Run("health needs no credentials", func(t *testing.T) {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), false)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("page needs credentials", func(t *testing.T) {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil), false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderWWWAuthenticate), "Basic")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/indexes", nil)
		req.SetBasicAuth(testUser, "nope")
		rec := ts.do(req, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("plain password is hashed at startup", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.PasswordHash = ""
		cfg.Auth.Password = testPassword
		plain := newTestServer(t, cfg)

		rec := plain.do(httptest.NewRequest(http.MethodGet, "/api/indexes", nil), true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestNew(t *testing.T) {
	reg, err := registry.New(map[string]queryengine.QueryEngine{catalog.Mixed: &stubEngine{}}, []string{catalog.Mixed})
	require.NoError(t, err)
	h := chat.NewHandler(reg, chat.WithLogger(quiet))

	t.Run("no password", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.PasswordHash = ""
		_, err := New(cfg, h, WithLogger(quiet))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password")
	})

	t.Run("malformed hash", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.PasswordHash = "not-a-hash"
		_, err := New(cfg, h, WithLogger(quiet))
		require.Error(t, err)
	})

	t.Run("default index not selectable", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DefaultIndex = catalog.Blake
		_, err := New(cfg, h, WithLogger(quiet))
		require.Error(t, err)
	})

	t.Run("listen address", func(t *testing.T) {
		s, err := New(testConfig(t), h, WithLogger(quiet))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7860", s.Addr())
	})
}

func TestPage(t *testing.T) {
	ts := newTestServer(t, testConfig(t), WithDescriptions(catalog.Default([]int{2019, 2022}).Descriptions))

	t.Run("renders selector with mixed selected", func(t *testing.T) {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil), true)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<title>LLM Query with Custom Indexes</title>")
		assert.Contains(t, body, "<b>2019-2022</b>: Uber annual 10K filings")
		assert.Contains(t, body, `<option value="mixed" selected>mixed</option>`)
		assert.Contains(t, body, `<option value="graph">graph</option>`)
		assert.Contains(t, body, `<label for="query">Enter your query</label>`)
		assert.Contains(t, body, "<h2>Query Result</h2>")
	})

	t.Run("form submit renders the answer", func(t *testing.T) {
		rec := ts.do(formQuery(url.Values{"query": {"How did revenue change?"}, "index": {"graph"}}), true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "graph answer")
		assert.Contains(t, rec.Body.String(), `<option value="graph" selected>graph</option>`)
		assert.Equal(t, []string{"How did revenue change?"}, ts.graph.seen())
	})

	t.Run("form submit escapes the query", func(t *testing.T) {
		rec := ts.do(formQuery(url.Values{"query": {"<script>x</script>"}}), true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "<script>x</script>")
	})

	t.Run("form submit with unknown index", func(t *testing.T) {
		rec := ts.do(formQuery(url.Values{"query": {"q"}, "index": {"nope"}}), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown index")
	})
}

func TestQueryAPI(t *testing.T) {
	ts := newTestServer(t, testConfig(t))

	t.Run("answers with sources", func(t *testing.T) {
		rec := ts.do(jsonQuery(`{"query":"revenue?","index":"graph"}`), true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp queryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "graph", resp.Index)
		assert.Equal(t, "graph answer", resp.Answer)
		require.Len(t, resp.Sources, 1)
		assert.Equal(t, "2021", resp.Sources[0].Index)
		assert.InDelta(t, 0.9, resp.Sources[0].Score, 1e-9)
	})

	t.Run("defaults to mixed and forwards empty query", func(t *testing.T) {
		rec := ts.do(jsonQuery(`{"query":""}`), true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp queryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, catalog.Mixed, resp.Index)
		assert.Equal(t, "mixed answer", resp.Answer)
		assert.Contains(t, ts.mixed.seen(), "")
	})

	t.Run("unknown index", func(t *testing.T) {
		rec := ts.do(jsonQuery(`{"query":"q","index":"nope"}`), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "unknown index")
	})

	t.Run("engine failure", func(t *testing.T) {
		rec := ts.do(jsonQuery(`{"query":"q","index":"broken"}`), true)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "deployment unavailable")
	})

	t.Run("lists indexes", func(t *testing.T) {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/indexes", nil), true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp indexesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"graph", "mixed", "broken"}, resp.Indexes)
		assert.Equal(t, catalog.Mixed, resp.Default)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	ts := newTestServer(t, cfg)

	rec := ts.do(jsonQuery(`{"query":"q"}`), true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(jsonQuery(`{"query":"q"}`), true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// listing is not limited
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/indexes", nil), true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.IndexBuild(catalog.Mixed, metrics.ActionLoaded)
	ts := newTestServer(t, testConfig(t), WithMetrics(m))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "indexquery_")
}

func TestStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = 0
	ts := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Start(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
