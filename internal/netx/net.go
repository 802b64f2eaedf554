// Package netx holds small HTTP helpers for talking to object storage
// through presigned URLs.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// UploadAttempts bounds how often an upload is tried before giving up.
const UploadAttempts = 3

// retryBase is the first backoff step; tests shorten it.
var retryBase = 200 * time.Millisecond

// UploadToPresignedURL PUTs body to url. Network errors and 5xx answers are
// retried with exponential backoff; any other non-2xx answer fails at once.
// A nil client means http.DefaultClient.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url, contentType string, body []byte) error {
	if client == nil {
		client = http.DefaultClient
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	backoff := retry.WithMaxRetries(UploadAttempts-1, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err = fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
		if resp.StatusCode >= 500 {
			return retry.RetryableError(err)
		}
		return err
	})
}
