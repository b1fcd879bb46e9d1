package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// MaxDownloadBytes caps remote template downloads.
const MaxDownloadBytes = 32 << 20

var (
	clientOnce sync.Once
	client     *retryablehttp.Client
)

func httpClient() *retryablehttp.Client {
	clientOnce.Do(func() {
		client = retryablehttp.NewClient()
		client.RetryMax = 2
		client.RetryWaitMin = 200 * time.Millisecond
		client.RetryWaitMax = 2 * time.Second
		client.HTTPClient.Timeout = 12 * time.Second
		client.Logger = nil
	})
	return client
}

// GetBytes fetches url and returns its body and Content-Type. Non-2xx
// responses are errors.
func GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > MaxDownloadBytes {
		return nil, "", fmt.Errorf("GET %s: body exceeds %d bytes", url, MaxDownloadBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
