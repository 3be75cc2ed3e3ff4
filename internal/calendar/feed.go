package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FeedSource downloads iCal feeds over HTTP.
type FeedSource struct {
	client *http.Client
}

func NewFeedSource(timeout time.Duration) *FeedSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedSource{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *FeedSource) Fetch(ctx context.Context, feedURL string) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrFetch, resp.StatusCode, feedURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	events, err := Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return events, nil
}
