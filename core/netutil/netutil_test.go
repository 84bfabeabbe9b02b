package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.True(t, ShouldRetry(dial))
	assert.True(t, ShouldRetry(&url.Error{Op: "Get", URL: "http://x", Err: dial}))
	assert.False(t, ShouldRetry(errors.New("boom")))
	assert.False(t, ShouldRetry(nil))
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	calls := 0
	rt := &RetryTransport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}),
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	calls := 0
	rt := &RetryTransport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("tls: bad certificate")
		}),
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBuildHTTPClientWithoutRetries(t *testing.T) {
	c := BuildHTTPClient(ClientOptions{Timeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, c.Timeout)
	_, isRetry := c.Transport.(*RetryTransport)
	assert.False(t, isRetry)

	tg := BuildHTTPClient(TelegramClientOptions())
	rt, isRetry := tg.Transport.(*RetryTransport)
	require.True(t, isRetry)
	assert.Equal(t, 3, rt.MaxRetries)
}
