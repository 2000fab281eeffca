package registry

import (
	"fmt"
	"io"
	"net/http"
)

// RawResponse is a fully read HTTP response.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends a built request and returns the raw response.
//
// Implementations return an error only when no response body could be
// obtained (DNS, connect, TLS, timeout, read failure). Any HTTP status with
// a readable body is a successful exchange.
type Transport interface {
	Send(req *http.Request) (*RawResponse, error)
}

// TransportFunc adapts a function to the [Transport] interface.
type TransportFunc func(req *http.Request) (*RawResponse, error)

// Send calls f(req).
func (f TransportFunc) Send(req *http.Request) (*RawResponse, error) { return f(req) }

// HTTPTransport is a [Transport] backed by an *http.Client.
// It is safe for concurrent use if the underlying client is.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client. A nil client gets a zero-value
// *http.Client, which has no timeout and uses [http.DefaultTransport].
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

// Send performs the request and reads the whole body.
func (t *HTTPTransport) Send(req *http.Request) (*RawResponse, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

var _ Transport = (*HTTPTransport)(nil)
