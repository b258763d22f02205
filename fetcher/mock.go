package fetcher

import "context"

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (*Result, error)
}

// Fetch implements Interface.Fetch
func (m *MockFetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return &Result{}, nil
}
