package redsearch

import (
	"context"
	"time"
)

// Sort selects the upstream result ordering.
type Sort string

const (
	SortRelevance    Sort = "relevance"
	SortNew          Sort = "new"
	SortTop          Sort = "top"
	SortCommentCount Sort = "comment_count"
)

func (s Sort) Valid() bool {
	switch s {
	case SortRelevance, SortNew, SortTop, SortCommentCount:
		return true
	}
	return false
}

// Timeframe restricts results to a time period.
type Timeframe string

const (
	TimeframeAll   Timeframe = "all"
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeAll, TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear:
		return true
	}
	return false
}

// ReturnMode selects how results are delivered: inline in the response, or
// persisted to a JSON file with the path returned instead.
type ReturnMode string

const (
	ReturnInline ReturnMode = "inline"
	ReturnFile   ReturnMode = "file"
)

func (m ReturnMode) Valid() bool {
	return m == ReturnInline || m == ReturnFile
}

// Modifier is a keyed search refinement (author, subreddit, title, ...)
// appended to the base query using the upstream field-search syntax.
// Modifiers are a slice, not a map: their order is observable in the built
// query string and must match insertion order.
type Modifier struct {
	Key   string
	Value any
}

// SearchRequest describes a single search call. Zero values for Sort,
// Timeframe and ReturnMode mean relevance/all/inline.
type SearchRequest struct {
	Query      string
	Sort       Sort
	Timeframe  Timeframe
	ReturnMode ReturnMode

	// MaxResults caps the number of collected results. Zero means unbounded;
	// pagination then runs until the upstream is exhausted.
	MaxResults int

	// OutputDir overrides the client's output directory for this call only.
	// Ignored in inline mode.
	OutputDir string

	Modifiers []Modifier
}

// Post is the normalized view of one upstream result. Raw retains the
// verbatim upstream object so no field is lost; the named fields are a view
// over it, not a replacement.
type Post struct {
	ID           string  `json:"id"`
	Subreddit    string  `json:"subreddit"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext,omitempty"`
	Author       string  `json:"author"`
	Score        int     `json:"score"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	NumComments  int     `json:"num_comments"`
	CreatedUTC   int64   `json:"created_utc"`
	CreatedAtISO string  `json:"created_at_iso"`
	URL          string  `json:"url"`
	Permalink    string  `json:"permalink"`
	IsSelf       bool    `json:"is_self"`
	IsVideo      bool    `json:"is_video"`

	Raw map[string]any `json:"-"`
}

// NewPostFromRaw normalizes one upstream item. Every field has an explicit
// default, so a partially populated item never fails the whole search.
func NewPostFromRaw(raw map[string]any) Post {
	created := rawInt64(raw, "created_utc")
	return Post{
		ID:           rawString(raw, "id"),
		Subreddit:    rawString(raw, "subreddit"),
		Title:        rawString(raw, "title"),
		Selftext:     rawString(raw, "selftext"),
		Author:       rawString(raw, "author"),
		Score:        int(rawInt64(raw, "score")),
		UpvoteRatio:  rawFloat(raw, "upvote_ratio"),
		NumComments:  int(rawInt64(raw, "num_comments")),
		CreatedUTC:   created,
		CreatedAtISO: time.Unix(created, 0).UTC().Format(time.RFC3339),
		URL:          rawString(raw, "url"),
		Permalink:    rawString(raw, "permalink"),
		IsSelf:       rawBool(raw, "is_self"),
		IsVideo:      rawBool(raw, "is_video"),
		Raw:          raw,
	}
}

func rawString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func rawFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func rawInt64(m map[string]any, key string) int64 {
	return int64(rawFloat(m, key))
}

func rawBool(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

// SearchResponse is the result of one search call. Posts and FilePath are a
// tagged union selected by the request's ReturnMode: exactly one is set.
// Count always equals the number of delivered records.
type SearchResponse struct {
	Success  bool   `json:"success"`
	Count    int    `json:"count"`
	Posts    []Post `json:"posts,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// Searcher is the call surface consumed by tool hosts. Client implements it;
// MockSearcher provides a canned stand-in for tests.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Close() error
}
