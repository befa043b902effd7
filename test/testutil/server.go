package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Route scripts the response for one request path.
type Route struct {
	Status    int               // defaults to 200
	Body      string            // response body
	Header    map[string]string // extra response headers
	FailTimes int               // answer 503 this many times before serving the route
}

// TestServer is an httptest server that serves scripted routes and records
// what it received. Unknown paths get 404.
type TestServer struct {
	*httptest.Server

	mu      sync.Mutex
	routes  map[string]Route
	hits    map[string]int
	headers map[string]http.Header
}

// NewTestServer starts a server for routes and closes it when the test ends.
func NewTestServer(t *testing.T, routes map[string]Route) *TestServer {
	t.Helper()
	ts := &TestServer{
		routes:  routes,
		hits:    make(map[string]int),
		headers: make(map[string]http.Header),
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) serve(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	ts.hits[r.URL.Path]++
	hit := ts.hits[r.URL.Path]
	ts.headers[r.URL.Path] = r.Header.Clone()
	route, ok := ts.routes[r.URL.Path]
	ts.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if hit <= route.FailTimes {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	for k, v := range route.Header {
		w.Header().Set(k, v)
	}
	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(route.Body))
}

// Hits returns how many requests reached path.
func (ts *TestServer) Hits(path string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.hits[path]
}

// LastHeader returns header key of the most recent request to path.
func (ts *TestServer) LastHeader(path, key string) string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	h, ok := ts.headers[path]
	if !ok {
		return ""
	}
	return h.Get(key)
}

// WriteURLList writes content to a url list file inside a temporary directory
// and returns its path.
func WriteURLList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write url list: %v", err)
	}
	return path
}

// ReadDir returns the names of the regular files in dir mapped to their contents.
func ReadDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir %s: %v", dir, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", e.Name(), err)
		}
		out[e.Name()] = string(data)
	}
	return out
}
