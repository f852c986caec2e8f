// Package utils holds small helpers shared by the client services.
package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDownload bounds the size of a downloaded object.
const maxDownload = 64 << 20

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Download fetches url, typically a presigned object URL, into memory.
func Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}
