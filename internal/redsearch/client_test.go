package redsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func post(id string) map[string]any {
	return map[string]any{"id": id, "title": "post " + id}
}

// pagedServer serves a cursor-keyed sequence of pages and counts requests.
func pagedServer(t *testing.T, pages map[string]searchPage, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("missing or wrong api key header: %q", got)
		}
		page, ok := pages[r.URL.Query().Get("after")]
		if !ok {
			t.Errorf("unexpected cursor: %q", r.URL.Query().Get("after"))
			http.Error(w, "unexpected cursor", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(baseURL), WithOutputDir(t.TempDir())}, opts...)
	c, err := NewClient("test-key", opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSearch_Pagination(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{
		"":   {Success: true, Posts: []map[string]any{post("1"), post("2")}, After: "c1"},
		"c1": {Success: true, Posts: []map[string]any{post("3"), post("4")}},
	}, &calls)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 4 || len(resp.Posts) != 4 {
		t.Fatalf("expected 4 posts, got count=%d len=%d", resp.Count, len(resp.Posts))
	}
	for i, want := range []string{"1", "2", "3", "4"} {
		if resp.Posts[i].ID != want {
			t.Fatalf("order broken at %d: got %q want %q", i, resp.Posts[i].ID, want)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}

func TestSearch_MaxResultsTruncates(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{
		"":   {Success: true, Posts: []map[string]any{post("1"), post("2")}, After: "c1"},
		"c1": {Success: true, Posts: []map[string]any{post("3"), post("4")}, After: "c2"},
	}, &calls)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.Search(context.Background(), SearchRequest{Query: "test", MaxResults: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("expected exactly 3 posts, got %d", resp.Count)
	}
	for i, want := range []string{"1", "2", "3"} {
		if resp.Posts[i].ID != want {
			t.Fatalf("truncation broke order at %d: got %q", i, resp.Posts[i].ID)
		}
	}
	// Cap reached on page 2; the cursor it returned must not be followed.
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}

func TestSearch_EmptyPageStopsPagination(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{
		"":   {Success: true, Posts: []map[string]any{post("1")}, After: "c1"},
		"c1": {Success: true, Posts: nil, After: "c2"},
	}, &calls)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	resp, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 post, got %d", resp.Count)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected pagination to stop after the empty page, got %d calls", n)
	}
}

func TestSearch_ValidationBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{"": {Success: true}}, &calls)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	bad := []SearchRequest{
		{Sort: "hot"},
		{Timeframe: "decade"},
		{ReturnMode: "stream"},
		{MaxResults: -1},
	}
	for _, req := range bad {
		_, err := c.Search(context.Background(), req)
		if kind, ok := ErrorKind(err); !ok || kind != KindValidation {
			t.Fatalf("request %+v: expected validation error, got %v", req, err)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("validation must reject before any network call, got %d calls", n)
	}
}

func TestSearch_AuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	if kind, ok := ErrorKind(err); !ok || kind != KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	var ce *Error
	if kind, ok := ErrorKind(err); !ok || kind != KindAPI {
		t.Fatalf("expected api error, got %v", err)
	}
	if !errors.As(err, &ce) || ce.StatusCode != 500 {
		t.Fatalf("expected status 500, got %v", err)
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Fatalf("error should carry the upstream body: %v", err)
	}
}

func TestSearch_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	if kind, ok := ErrorKind(err); !ok || kind != KindConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestSearch_MalformedBodyIsInternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "test"})
	if kind, ok := ErrorKind(err); !ok || kind != KindInternal {
		t.Fatalf("expected internal error for malformed body, got %v", err)
	}
}

func TestSearch_FileMode(t *testing.T) {
	raw := map[string]any{
		"id":    "abc123",
		"title": "Test Post",
		"extra": "kept verbatim",
	}
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{
		"": {Success: true, Posts: []map[string]any{raw}},
	}, &calls)
	defer srv.Close()

	dir := t.TempDir()
	c := newTestClient(t, srv.URL)
	resp, err := c.Search(context.Background(), SearchRequest{
		Query:      "test",
		ReturnMode: ReturnFile,
		OutputDir:  dir,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 1 || len(resp.Posts) != 0 {
		t.Fatalf("file mode must not populate posts: %+v", resp)
	}
	if resp.FilePath == "" || !strings.HasPrefix(filepath.Base(resp.FilePath), "reddit_search_test_") {
		t.Fatalf("unexpected file path: %q", resp.FilePath)
	}

	b, err := os.ReadFile(resp.FilePath)
	if err != nil {
		t.Fatalf("read result file: %v", err)
	}
	var saved []map[string]any
	if err := json.Unmarshal(b, &saved); err != nil {
		t.Fatalf("result file is not a JSON array: %v", err)
	}
	if len(saved) != 1 || saved[0]["id"] != "abc123" || saved[0]["extra"] != "kept verbatim" {
		t.Fatalf("file content is not the verbatim raw objects: %v", saved)
	}
}

func TestSearch_OutputDirOverrideDoesNotLeak(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, map[string]searchPage{
		"": {Success: true, Posts: []map[string]any{post("1")}},
	}, &calls)
	defer srv.Close()

	defaultDir := t.TempDir()
	overrideDir := t.TempDir()
	c := newTestClient(t, srv.URL, WithOutputDir(defaultDir))

	first, err := c.Search(context.Background(), SearchRequest{Query: "a", ReturnMode: ReturnFile, OutputDir: overrideDir})
	if err != nil {
		t.Fatalf("search with override: %v", err)
	}
	if filepath.Dir(first.FilePath) != overrideDir {
		t.Fatalf("override ignored: %q", first.FilePath)
	}

	second, err := c.Search(context.Background(), SearchRequest{Query: "b", ReturnMode: ReturnFile})
	if err != nil {
		t.Fatalf("search without override: %v", err)
	}
	if filepath.Dir(second.FilePath) != defaultDir {
		t.Fatalf("per-call override leaked into a later call: %q", second.FilePath)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newTestClient(t, "http://localhost:0")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := c.Search(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("search on a closed client should fail")
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("REDDIT_API_KEY", "")
	_, err := NewClient("")
	if kind, ok := ErrorKind(err); !ok || kind != KindValidation {
		t.Fatalf("expected validation error without a key, got %v", err)
	}
}

func TestNewClient_KeyFromEnv(t *testing.T) {
	t.Setenv("REDDIT_API_KEY", "env-key")
	c, err := NewClient("", WithOutputDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	if c.apiKey != "env-key" {
		t.Fatalf("key not taken from environment: %q", c.apiKey)
	}
}
