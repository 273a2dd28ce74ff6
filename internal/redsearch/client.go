package redsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.scrapecreators.com/v1/reddit/search"

	// Fixed per-request timeout. Pagination as a whole is unbounded; callers
	// needing a ceiling must set MaxResults.
	requestTimeout = 30 * time.Second

	apiKeyEnv    = "REDDIT_API_KEY"
	outputDirEnv = "REDDIT_SEARCH_OUTPUT_DIR"
)

// Client is a thin client for the ScrapeCreators Reddit search API. One HTTP
// request is in flight at a time; pagination is strictly sequential because
// each page depends on the previous cursor. The client holds its transport
// for its lifetime; release it with Close.
type Client struct {
	apiKey     string
	baseURL    string
	outputDir  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOutputDir sets the default directory for file-mode results.
func WithOutputDir(dir string) Option {
	return func(c *Client) { c.outputDir = dir }
}

// WithLogger injects a logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRateLimit caps upstream requests per second. Zero or negative leaves
// the client unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient constructs a client. The API key is the explicit argument, else
// the REDDIT_API_KEY environment variable; absence is a hard failure. The
// output directory falls back to REDDIT_SEARCH_OUTPUT_DIR, then to a
// directory under the user's home.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" {
		return nil, validationError("Reddit API key not found: pass it explicitly or set %s", apiKeyEnv)
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.outputDir == "" {
		c.outputDir = os.Getenv(outputDirEnv)
	}
	if c.outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, internalError(err, "resolve home directory")
		}
		c.outputDir = filepath.Join(home, "reddit_search_results")
	}
	return c, nil
}

// Close releases the transport. Idempotent; a closed client rejects further
// searches.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.httpClient.CloseIdleConnections()
	})
	return nil
}

// searchPage mirrors one upstream response: a top-level posts array plus an
// optional cursor for the next page. Posts stay raw maps so the verbatim
// upstream fields survive normalization and the file sink.
type searchPage struct {
	Success bool             `json:"success"`
	Posts   []map[string]any `json:"posts"`
	After   string           `json:"after"`
}

// fetchPage performs a single authenticated GET for one page. The API key
// travels in a header, never in the URL, so it cannot leak into logs. Error
// mapping: 401 is an authentication failure, any other non-200 an API error
// carrying status and body, transport failures a connection error, and a
// malformed body an internal error. No retries: one failed page fails the
// whole in-flight search.
func (c *Client) fetchPage(ctx context.Context, query string, sort Sort, timeframe Timeframe, cursor string) (*searchPage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, connectionError(err, "rate limiter wait")
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, internalError(err, "parse base URL")
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("sort", string(sort))
	q.Set("timeframe", string(timeframe))
	if cursor != "" {
		q.Set("after", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, internalError(err, "new request")
	}
	req.Header.Set("x-api-key", c.apiKey)

	c.log.Debug().Str("query", query).Str("sort", string(sort)).Str("timeframe", string(timeframe)).Str("after", cursor).Msg("fetching page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError(err, "request upstream")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, authenticationError()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apiError(resp.StatusCode, string(body))
	}

	var page searchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, internalError(err, "decode upstream response")
	}
	return &page, nil
}

// collect drives fetchPage across pages. Items accumulate in page order and
// within-page order. A set cap truncates the tail of the final page; the
// loop otherwise stops when a page yields no cursor or no items.
func (c *Client) collect(ctx context.Context, query string, sort Sort, timeframe Timeframe, max int) ([]map[string]any, error) {
	var collected []map[string]any
	cursor := ""
	for {
		page, err := c.fetchPage(ctx, query, sort, timeframe, cursor)
		if err != nil {
			return nil, err
		}
		collected = append(collected, page.Posts...)
		if max > 0 && len(collected) >= max {
			return collected[:max], nil
		}
		if page.After == "" || len(page.Posts) == 0 {
			return collected, nil
		}
		cursor = page.After
	}
}

// Search validates the request, builds the query, paginates until the cap or
// exhaustion, and delivers results per the request's return mode. A failed
// page aborts the whole call: no partial results.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if c.closed.Load() {
		return nil, internalError(nil, "client is closed")
	}

	if req.Sort == "" {
		req.Sort = SortRelevance
	}
	if req.Timeframe == "" {
		req.Timeframe = TimeframeAll
	}
	if req.ReturnMode == "" {
		req.ReturnMode = ReturnInline
	}
	if !req.Sort.Valid() {
		return nil, validationError("invalid sort option %q: valid options are %s, %s, %s, %s",
			req.Sort, SortRelevance, SortNew, SortTop, SortCommentCount)
	}
	if !req.Timeframe.Valid() {
		return nil, validationError("invalid timeframe option %q: valid options are %s, %s, %s, %s, %s",
			req.Timeframe, TimeframeAll, TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear)
	}
	if !req.ReturnMode.Valid() {
		return nil, validationError("invalid return mode %q: valid options are %s, %s",
			req.ReturnMode, ReturnInline, ReturnFile)
	}
	if req.MaxResults < 0 {
		return nil, validationError("max results must be positive, got %d", req.MaxResults)
	}

	query := BuildQuery(req.Query, req.Modifiers)
	raw, err := c.collect(ctx, query, req.Sort, req.Timeframe, req.MaxResults)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(raw)).Str("mode", string(req.ReturnMode)).Msg("search complete")

	if req.ReturnMode == ReturnFile {
		// The override is scoped to this call and never touches client state.
		dir := req.OutputDir
		if dir == "" {
			dir = c.outputDir
		}
		path, err := writeResults(dir, req.Query, raw)
		if err != nil {
			return nil, internalError(err, "write results file")
		}
		return &SearchResponse{Success: true, Count: len(raw), FilePath: path}, nil
	}

	posts := make([]Post, 0, len(raw))
	for _, item := range raw {
		posts = append(posts, NewPostFromRaw(item))
	}
	return &SearchResponse{Success: true, Count: len(posts), Posts: posts}, nil
}
