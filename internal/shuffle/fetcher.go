package shuffle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dreamware/flint/internal/flinterr"
)

// Fetcher retrieves shuffle blocks from remote Managers: one HTTP GET per
// (shuffle, map, reduce) triple, fanned out across known map-output
// locations with bounded concurrency, each retried with capped exponential
// backoff before giving up.
type Fetcher struct {
	httpClient  *http.Client
	concurrency int
	maxElapsed  time.Duration
}

// NewFetcher builds a Fetcher. concurrency bounds how many in-flight GETs
// run at once; 0 defaults to runtime.NumCPU(), matching the "thread pool
// sized by core count" the process environment otherwise relies on the Go
// scheduler to provide.
func NewFetcher(concurrency int, timeout time.Duration) *Fetcher {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		concurrency: concurrency,
		maxElapsed:  timeout,
	}
}

// Fetch retrieves the reduceIndex block from every map partition listed in
// locations and passes each one's raw bytes to consume, in whatever order
// the fetches complete. consume is never called concurrently with itself.
// If ctx is canceled, in-flight fetches are aborted and any bytes already
// read are discarded rather than handed to consume.
func (f *Fetcher) Fetch(ctx context.Context, shuffleID, reduceIndex int, locations map[int]string, consume func(data []byte) error) error {
	if len(locations) == 0 {
		return nil
	}

	sem := make(chan struct{}, f.concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for mapIndex, uri := range locations {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(mapIndex int, uri string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := f.fetchOne(ctx, uri, shuffleID, mapIndex, reduceIndex)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = &flinterr.FetchFailed{ShuffleID: shuffleID, MapIndex: mapIndex, ReduceIndex: reduceIndex, Err: err}
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			if firstErr == nil && ctx.Err() == nil {
				if cerr := consume(data); cerr != nil {
					firstErr = cerr
				}
			}
			mu.Unlock()
		}(mapIndex, uri)
	}

	wg.Wait()
	return firstErr
}

// fetchOne performs a single block GET, retrying transient failures
// (connection errors, 404s that might just mean the map task hasn't
// published yet, and 5xx responses) with capped exponential backoff.
func (f *Fetcher) fetchOne(ctx context.Context, uri string, shuffleID, mapIndex, reduceIndex int) ([]byte, error) {
	url := fmt.Sprintf("%s/shuffle/%d/%d/%d", uri, shuffleID, mapIndex, reduceIndex)

	var data []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			data = body
			return nil
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500:
			return fmt.Errorf("shuffle fetch %s: status %d", url, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("shuffle fetch %s: status %d", url, resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.maxElapsed

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return data, nil
}
