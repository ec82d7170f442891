package miner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rigmon/rigmon/internal/history"
	"github.com/rigmon/rigmon/internal/jsonpath"
)

const (
	testSummary  = `{"id": "abc", "worker_id": "rig-1", "uptime": 5000, "paused": false, "resources": {"memory": {"free": 1024, "total": 4096}}, "hashrate": {"total": [512.5, 510.0, 505.2], "highest": 530.0}}`
	testBackends = `[{"type": "cpu", "enabled": true, "hashrate": [100.5, 99.0, 98.5], "threads": [{"intensity": 1}]}]`
	testConfig   = `{"autosave": true, "http": {"enabled": true, "port": 37841, "restricted": false}, "pools": [{"url": "pool.example:3333"}]}`
)

// testServer serves canned endpoint bodies and counts GETs per path.
type testServer struct {
	*httptest.Server
	bodies map[string]string
	status map[string]int
	gets   map[string]*atomic.Int64
	posts  []postRecord
}

type postRecord struct {
	Path string
	Body map[string]any
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		bodies: map[string]string{
			"/2/summary":  testSummary,
			"/2/backends": testBackends,
			"/2/config":   testConfig,
		},
		status: map[string]int{},
		gets: map[string]*atomic.Int64{
			"/2/summary":  {},
			"/2/backends": {},
			"/2/config":   {},
		},
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code, ok := ts.status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if counter, ok := ts.gets[r.URL.Path]; ok {
				counter.Add(1)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(ts.bodies[r.URL.Path]))
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			ts.posts = append(ts.posts, postRecord{Path: r.URL.Path, Body: body})
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, ts *testServer, hist *history.Store) *Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return New(Options{Name: "M1", Host: u.Hostname(), Port: port}, hist)
}

func openTestHistory(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(history.Options{DBPath: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRefreshCachesResponse(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointSummary); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("uptime"))
	if !ok || got != float64(5000) {
		t.Fatalf("uptime = %v, %v", got, ok)
	}

	// The cache is a faithful copy: resolving equals traversing the
	// decoded body directly.
	var direct any
	if err := json.Unmarshal([]byte(testSummary), &direct); err != nil {
		t.Fatal(err)
	}
	whole, ok := c.Document(ctx, EndpointSummary)
	if !ok || !reflect.DeepEqual(whole, direct) {
		t.Fatalf("cached document diverges from response body")
	}
}

func TestRefreshAll(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)

	if err := c.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, ep := range Endpoints() {
		if _, ok := c.cached(ep); !ok {
			t.Fatalf("endpoint %s not cached", ep)
		}
	}
}

func TestRefreshUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointConfig); err != nil {
		t.Fatal(err)
	}
	before, _ := c.cached(EndpointConfig)

	ts.status["/2/config"] = http.StatusUnauthorized
	err := c.Refresh(ctx, EndpointConfig)
	if !IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}

	after, _ := c.cached(EndpointConfig)
	if !reflect.DeepEqual(before, after) {
		t.Fatal("cache changed on auth failure")
	}
}

func TestRefreshMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	// The known quirk: backends serves garbage shortly after restart.
	ts.bodies["/2/backends"] = `{"truncated": `
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	err := c.Refresh(ctx, EndpointBackends)
	if !IsParse(err) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if _, ok := c.cached(EndpointBackends); ok {
		t.Fatal("garbled response must not be cached")
	}
	if IsAuth(err) || IsConn(err) {
		t.Fatal("parse failure misclassified")
	}
}

func TestRefreshConnectivityFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.Close()
	c := newTestClient(t, ts, nil)

	err := c.Refresh(context.Background(), EndpointSummary)
	if !IsConn(err) {
		t.Fatalf("expected ConnError, got %v", err)
	}
}

func TestLookupFallsBackToHistory(t *testing.T) {
	ts := newTestServer(t)
	hist := openTestHistory(t)
	c := newTestClient(t, ts, hist)
	ctx := context.Background()

	if err := c.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}

	path := jsonpath.Parse("resources.memory.free")
	before, ok := c.Lookup(ctx, EndpointSummary, path)
	if !ok {
		t.Fatal("expected cached value")
	}

	c.ClearCache()
	after, ok := c.Lookup(ctx, EndpointSummary, path)
	if !ok {
		t.Fatal("expected history fallback to produce a value")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("fallback value %v differs from cached %v", after, before)
	}
}

func TestLookupBackendsFallbackStripsLeadingIndex(t *testing.T) {
	ts := newTestServer(t)
	hist := openTestHistory(t)
	c := newTestClient(t, ts, hist)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointBackends); err != nil {
		t.Fatal(err)
	}
	c.ClearCache()

	// The per-backend snapshot is scoped to one backend, so the walk
	// replays without the leading index.
	got, ok := c.Lookup(ctx, EndpointBackends, jsonpath.Parse("0.hashrate.1"))
	if !ok || got != float64(99.0) {
		t.Fatalf("backend fallback = %v, %v", got, ok)
	}
}

func TestLookupMissWithoutHistory(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if _, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("uptime")); ok {
		t.Fatal("expected miss before any refresh")
	}

	if err := c.Refresh(ctx, EndpointSummary); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("no.such.key")); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLookupDegradesToMissWhenHistoryBroken(t *testing.T) {
	ts := newTestServer(t)
	hist := openTestHistory(t)
	c := newTestClient(t, ts, hist)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointSummary); err != nil {
		t.Fatal(err)
	}
	c.ClearCache()
	hist.Close()

	// A store outage during fallback is a miss, never an error.
	if _, ok := c.Lookup(ctx, EndpointSummary, jsonpath.Parse("uptime")); ok {
		t.Fatal("expected miss when the history store is unavailable")
	}
}

func TestRefreshSurfacesHistoryWriteFailure(t *testing.T) {
	ts := newTestServer(t)
	hist := openTestHistory(t)
	c := newTestClient(t, ts, hist)
	hist.Close()

	err := c.Refresh(context.Background(), EndpointSummary)
	if !history.IsStoreError(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if IsAuth(err) || IsConn(err) || IsParse(err) {
		t.Fatal("write failure misclassified")
	}
}

func TestApplyConfigRefreshesOnce(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	newCfg := map[string]any{"autosave": false}
	if err := c.ApplyConfig(ctx, newCfg); err != nil {
		t.Fatal(err)
	}

	if n := ts.gets["/2/config"].Load(); n != 1 {
		t.Fatalf("config refreshed %d times after apply, want 1", n)
	}
	if len(ts.posts) != 1 || ts.posts[0].Path != "/2/config" {
		t.Fatalf("posts = %+v", ts.posts)
	}
	if ts.posts[0].Body["autosave"] != false {
		t.Fatalf("posted body = %+v", ts.posts[0].Body)
	}
}

func TestControlPause(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)

	if err := c.Control(context.Background(), ActionPause); err != nil {
		t.Fatal(err)
	}

	if len(ts.posts) != 1 || ts.posts[0].Path != "/json_rpc" {
		t.Fatalf("posts = %+v", ts.posts)
	}
	body := ts.posts[0].Body
	if body["method"] != "pause" || body["jsonrpc"] != "2.0" || body["id"] != float64(1) {
		t.Fatalf("json_rpc payload = %+v", body)
	}
}

func TestControlStartRepostsConfig(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)

	if err := c.Control(context.Background(), ActionStart); err != nil {
		t.Fatal(err)
	}

	// start = refresh config, POST it back, refresh again after apply.
	if len(ts.posts) != 1 || ts.posts[0].Path != "/2/config" {
		t.Fatalf("posts = %+v", ts.posts)
	}
	if ts.posts[0].Body["autosave"] != true {
		t.Fatalf("reposted config = %+v", ts.posts[0].Body)
	}
	if n := ts.gets["/2/config"].Load(); n != 2 {
		t.Fatalf("config fetched %d times during start, want 2", n)
	}
}

func TestParseEndpointAndAction(t *testing.T) {
	if _, err := ParseEndpoint("summary"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseEndpoint("bogus"); err == nil {
		t.Fatal("expected error for unknown endpoint")
	}
	if _, err := ParseAction("resume"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAction("explode"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
