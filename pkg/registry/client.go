package registry

import (
	"crypto/rand"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modreg/pkg/buildinfo"
	"github.com/matzehuels/modreg/pkg/errors"
)

// Client talks to one registry on behalf of at most one session.
//
// A Client is safe for concurrent use. Treat it as read-mostly: authenticate
// once, then issue requests from any number of goroutines.
type Client struct {
	base      string
	transport Transport
	logger    *log.Logger
	userAgent string

	mu    sync.RWMutex
	token *string
}

// Option configures a [Client] during [New].
type Option func(*Client) error

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) error {
		if t == nil {
			return errors.New(errors.ErrCodeTransportInit, "transport is nil")
		}
		c.transport = t
		return nil
	}
}

// WithHTTPClient sends requests through client instead of a zero-value
// *http.Client. Use it to set timeouts, proxies or TLS configuration.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New(errors.ErrCodeTransportInit, "http client is nil")
		}
		c.transport = NewHTTPTransport(client)
		return nil
	}
}

// WithLogger enables debug logging of requests and responses.
// Session tokens are never logged.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// New creates a client for the registry at baseURL with no session token.
//
// baseURL must be an absolute http or https URL; endpoint paths are appended
// to it verbatim, so it should not end with a slash. New fails with
// INVALID_URL for a bad base address and TRANSPORT_INIT when an option
// cannot construct the transport.
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}

	c := &Client{
		base:      baseURL,
		logger:    log.New(io.Discard),
		userAgent: buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(nil)
	}
	return c, nil
}

// BaseURL returns the registry address the client was created with.
func (c *Client) BaseURL() string { return c.base }

// Authenticate stores token as the session token, replacing any previous one.
// The token is opaque; it is not validated and no request is made.
func (c *Client) Authenticate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = &token
}

// Token returns the session token and whether one has been set.
func (c *Client) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return "", false
	}
	return *c.token, true
}

const (
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength   = 32

	// Largest multiple of len(tokenAlphabet) that fits in a byte; bytes at or
	// above it are rejected so every symbol is equally likely.
	tokenRejectAbove = 256 - 256%len(tokenAlphabet)
)

// RandomSessionToken returns a fresh 32 character alphanumeric token.
//
// The token only names a pending session. It proves nothing until the
// registry has associated it with a user during login.
func RandomSessionToken() string {
	out := make([]byte, 0, tokenLength)
	buf := make([]byte, tokenLength*2)
	for len(out) < tokenLength {
		// crypto/rand.Read never returns an error on supported platforms.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == tokenLength {
				break
			}
		}
	}
	return string(out)
}
