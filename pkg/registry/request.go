package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/observability"
)

const (
	headerAuth        = "Auth"
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"

	contentTypeJSON = "application/json; charset=utf-8"
)

// Get performs a GET request against rawURL and decodes the success payload
// of the response envelope into T.
func Get[T any](ctx context.Context, c *Client, rawURL string) (T, error) {
	var zero T
	u, err := parseURL(rawURL)
	if err != nil {
		return zero, err
	}

	c.logger.Debug("requesting", "method", http.MethodGet, "url", u.Redacted())
	req, err := c.buildRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return zero, err
	}
	return execute[T](c, req)
}

// Post JSON-encodes body, POSTs it to rawURL and decodes the success payload
// of the response envelope into T.
//
// A body that cannot be encoded (channels, funcs, cyclic values) is a
// programming error and is reported as REQUEST_BUILD.
func Post[T any](ctx context.Context, c *Client, rawURL string, body any) (T, error) {
	var zero T
	u, err := parseURL(rawURL)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return zero, errors.Wrap(errors.ErrCodeRequestBuild, err, "encode %T", body)
	}

	c.logger.Debug("requesting", "method", http.MethodPost, "url", u.Redacted(), "bytes", len(data))
	req, err := c.buildRequest(ctx, http.MethodPost, u, data)
	if err != nil {
		return zero, err
	}
	return execute[T](c, req)
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "parse %q", rawURL)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidURL, "not an absolute URL: %q", rawURL)
	}
	return u, nil
}

// buildRequest assembles a request for u. The Auth header is attached iff a
// session token is set; Content-Type iff body is non-empty.
func (c *Client) buildRequest(ctx context.Context, method string, u *url.URL, body []byte) (*http.Request, error) {
	var r io.Reader
	if len(body) > 0 {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRequestBuild, err, "%s %s", method, u.Redacted())
	}

	if c.userAgent != "" {
		if !httpguts.ValidHeaderFieldValue(c.userAgent) {
			return nil, errors.New(errors.ErrCodeRequestBuild, "invalid User-Agent header value")
		}
		req.Header.Set(headerUserAgent, c.userAgent)
	}

	if token, ok := c.Token(); ok {
		if !httpguts.ValidHeaderFieldValue(token) {
			return nil, errors.New(errors.ErrCodeRequestBuild, "session token is not a valid header value")
		}
		c.logger.Debug("adding session token")
		req.Header.Set(headerAuth, token)
	}

	if len(body) > 0 {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	return req, nil
}

// execute sends req exactly once and decodes the envelope. A transport
// failure returns immediately without attempting to decode anything.
func execute[T any](c *Client, req *http.Request) (T, error) {
	var zero T
	ctx := req.Context()
	method, host, path := req.Method, req.URL.Host, req.URL.Path
	logger := c.logger.With("req", uuid.NewString()[:8])

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.transport.Send(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		logger.Debug("transport failed", "method", method, "url", req.URL.Redacted(), "err", err)
		return zero, errors.Wrap(errors.ErrCodeTransport, err, "%s %s", method, req.URL.Redacted())
	}

	elapsed := time.Since(start)
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, elapsed)
	logger.Debug("response", "status", resp.StatusCode, "bytes", len(resp.Body), "elapsed", elapsed.Round(time.Millisecond))

	v, err := decodeEnvelope[T](resp.Body, resp.StatusCode)
	logDecoded(logger, err)
	return v, err
}

func logDecoded(logger *log.Logger, err error) {
	switch {
	case err == nil:
		logger.Debug("api: success")
	case errors.IsApplication(err):
		logger.Debug("api: error", "message", errors.UserMessage(err))
	default:
		logger.Debug("api: undecodable", "err", err)
	}
}
