package redsearch

import "context"

// MockSearcher implements Searcher with canned data for tests and offline
// runs. It records every request it receives.
type MockSearcher struct {
	Response *SearchResponse
	Err      error
	Requests []SearchRequest
	Closed   bool
}

func (m *MockSearcher) Search(_ context.Context, req SearchRequest) (*SearchResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response != nil {
		return m.Response, nil
	}
	post := NewPostFromRaw(map[string]any{
		"id":        "mock1",
		"subreddit": "golang",
		"title":     "Mock result",
		"author":    "mockuser",
	})
	return &SearchResponse{Success: true, Count: 1, Posts: []Post{post}}, nil
}

func (m *MockSearcher) Close() error {
	m.Closed = true
	return nil
}
