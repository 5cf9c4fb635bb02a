package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"trafficdash/snapshot"
)

const defaultMaxBodyBytes = 8 << 20

// Fetcher retrieves one snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (snapshot.Snapshot, error)
}

// httpFetcher issues a plain GET; no conditional headers, no parameters.
type httpFetcher struct {
	url          string
	client       *http.Client
	maxBodyBytes int64
}

// NewHTTPFetcher returns a Fetcher for url. A nil client uses a client with
// no timeout of its own.
func NewHTTPFetcher(url string, client *http.Client) Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &httpFetcher{url: url, client: client, maxBodyBytes: defaultMaxBodyBytes}
}

func (f *httpFetcher) Fetch(ctx context.Context) (snapshot.Snapshot, error) {
	if f == nil {
		return snapshot.Snapshot{}, fmt.Errorf("nil fetcher")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return snapshot.Snapshot{}, &TransportError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return snapshot.Snapshot{}, &TransportError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return snapshot.Snapshot{}, &ProtocolError{URL: f.url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return snapshot.Snapshot{}, &TransportError{URL: f.url, Err: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return snapshot.Snapshot{}, &DecodeError{Err: fmt.Errorf("snapshot: body exceeds %d bytes", f.maxBodyBytes)}
	}
	snap, err := snapshot.Decode(body)
	if err != nil {
		return snapshot.Snapshot{}, &DecodeError{Err: err}
	}
	return snap, nil
}
