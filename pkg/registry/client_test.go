package registry

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/matzehuels/modreg/pkg/errors"
)

func TestNew(t *testing.T) {
	c, err := New("http://[::1]:8000")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.BaseURL() != "http://[::1]:8000" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if _, ok := c.transport.(*HTTPTransport); !ok {
		t.Errorf("default transport = %T, want *HTTPTransport", c.transport)
	}
	if _, ok := c.Token(); ok {
		t.Error("new client should have no session token")
	}
}

func TestNewInvalidBase(t *testing.T) {
	for _, base := range []string{"", "registry.example", "ftp://registry.example", "http://"} {
		if _, err := New(base); !errors.Is(err, errors.ErrCodeInvalidURL) {
			t.Errorf("New(%q) error = %v, want INVALID_URL", base, err)
		}
	}
}

func TestNewTransportInit(t *testing.T) {
	if _, err := New("http://x", WithTransport(nil)); !errors.Is(err, errors.ErrCodeTransportInit) {
		t.Errorf("WithTransport(nil) error = %v, want TRANSPORT_INIT", err)
	}
	if _, err := New("http://x", WithHTTPClient(nil)); !errors.Is(err, errors.ErrCodeTransportInit) {
		t.Errorf("WithHTTPClient(nil) error = %v, want TRANSPORT_INIT", err)
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{}
	c, err := New("http://x", WithHTTPClient(hc))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	tr, ok := c.transport.(*HTTPTransport)
	if !ok || tr.client != hc {
		t.Error("WithHTTPClient should wrap the given client")
	}
}

func TestAuthenticate(t *testing.T) {
	c, _ := New("http://x")

	c.Authenticate("abc123")
	if tok, ok := c.Token(); !ok || tok != "abc123" {
		t.Errorf("Token() = %q, %v; want %q, true", tok, ok, "abc123")
	}

	c.Authenticate("zzz")
	if tok, _ := c.Token(); tok != "zzz" {
		t.Errorf("Token() after overwrite = %q, want %q", tok, "zzz")
	}
}

func TestRandomSessionToken(t *testing.T) {
	a := RandomSessionToken()
	b := RandomSessionToken()

	for _, tok := range []string{a, b} {
		if len(tok) != 32 {
			t.Errorf("len(%q) = %d, want 32", tok, len(tok))
		}
		for _, r := range tok {
			isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !isAlnum {
				t.Errorf("token %q contains non-alphanumeric %q", tok, r)
			}
		}
	}
}

func TestRandomSessionTokenCoversAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 200; i++ {
		for _, r := range RandomSessionToken() {
			seen[r] = true
		}
	}
	// 6400 draws over 62 symbols: missing one is astronomically unlikely.
	if len(seen) != len(tokenAlphabet) {
		t.Errorf("saw %d distinct symbols, want %d", len(seen), len(tokenAlphabet))
	}
}

func TestConcurrentRequests(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	tr := TransportFunc(func(req *http.Request) (*RawResponse, error) {
		mu.Lock()
		seen[req.Header.Get(headerAuth)]++
		mu.Unlock()
		return &RawResponse{StatusCode: 200, Body: []byte(`{"success": true, "data": {"user": "alice"}}`)}, nil
	})
	c := testClient(t, "http://x", tr)
	c.Authenticate("abc123")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.VerifySession(context.Background()); err != nil {
				t.Errorf("VerifySession() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if seen["abc123"] != 32 {
		t.Errorf("requests with token = %d, want 32 (seen %v)", seen["abc123"], seen)
	}
}
