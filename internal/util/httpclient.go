package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// RetryPolicy bounds the exponential backoff applied to external calls.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.Initial <= 0 {
		p.Initial = 500 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 5 * time.Second
	}
	return p
}

// Retry runs fn under the policy's exponential backoff until it
// succeeds, the attempts are exhausted, or ctx is cancelled.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	p = p.withDefaults()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.Initial
	bo.MaxInterval = p.Max
	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxRetries)), ctx))
}

// Permanent marks an error as not retryable (e.g. a 4xx rejection).
func Permanent(err error) error { return backoff.Permanent(err) }

// StatusError turns a non-2xx response into an error carrying the
// first bytes of the body, closing it. Returns nil for 2xx.
func StatusError(name string, resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return fmt.Errorf("%s %d: %s", name, resp.StatusCode, strings.TrimSpace(string(b)))
}
