package ingest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/crashlens/internal/metrics"
)

// Fetcher downloads crash extracts over HTTP with retry on transient
// failures.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch downloads the extract at url, retrying rate limits and server errors
// with exponential backoff. Client errors are permanent.
func (f *Fetcher) Fetch(url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		resp, err := f.client.Get(url)
		if err != nil {
			return fmt.Errorf("fetch extract: %w", err)
		}
		defer resp.Body.Close()
		metrics.FetchCallsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("fetch extract: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch extract: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// ImportURL downloads an extract and imports it in one step.
func (im *Importer) ImportURL(f *Fetcher, url string) (ImportStats, error) {
	body, err := f.Fetch(url)
	if err != nil {
		return ImportStats{}, err
	}
	return im.Import(bytes.NewReader(body), "http", url)
}
