// Package clients talks to the external services around the engines: feature
// extraction, remote segmentation and the rendering client.
package clients

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrStatus wraps any non-200 answer from a service.
var ErrStatus = errors.New("unexpected status")

type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

func statusError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("%s %s: %s: %w", service, resp.Status, string(body), ErrStatus)
}
