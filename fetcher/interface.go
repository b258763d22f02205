package fetcher

import "context"

// Result holds the downloaded bytes and the content type the upstream
// reported for them.
type Result struct {
	Body        []byte
	ContentType string
}

// Interface defines the contract for downloading source images
type Interface interface {
	// Fetch downloads the resource at url. Failures are classified into
	// ErrUnsupportedScheme, ErrTimeout, *FetchError or transport errors;
	// see IsRetryable for the retry contract.
	Fetch(ctx context.Context, url string) (*Result, error)
}
