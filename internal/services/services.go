// package services implements the remote collaborators of a synchronization run:
// the YouTube catalog and the healthcheck endpoint.
package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
)

// defaultRetryInterval is the first wait between two attempts of a failed request.
const defaultRetryInterval = 500 * time.Millisecond

// newExponentialBackOff returns the backoff policy shared by catalog requests.
func newExponentialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultRetryInterval
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// retryable reports whether a failed request may succeed when sent again.
//
// Rate limiting (429) and server errors (5xx) are transient, as are network failures, truncated
// responses and per-request timeouts. Every other error is permanent, including malformed
// responses and the cancellation of the parent context.
func retryable(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
