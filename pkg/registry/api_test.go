package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/registry"
	"github.com/matzehuels/modreg/pkg/registrytest"
)

const whoisSource = `-- Description: whois lookup
-- Version: 0.1.0

function run(arg)
end
`

func newClient(t *testing.T, base string) *registry.Client {
	t.Helper()
	c, err := registry.New(base)
	if err != nil {
		t.Fatalf("registry.New() error: %v", err)
	}
	return c
}

func TestVerifySession(t *testing.T) {
	srv := registrytest.NewServer(t)
	srv.Approve("abc123", "alice")
	c := newClient(t, srv.URL)

	_, err := c.VerifySession(context.Background())
	if !errors.IsApplication(err) {
		t.Fatalf("unauthenticated VerifySession() error = %v, want APPLICATION", err)
	}
	if msg := errors.UserMessage(err); msg != "invalid session" {
		t.Errorf("UserMessage() = %q, want %q", msg, "invalid session")
	}
	if _, sent := srv.LastRequest().Header["Auth"]; sent {
		t.Error("Auth header sent without a session")
	}

	c.Authenticate("abc123")
	user, err := c.VerifySession(context.Background())
	if err != nil {
		t.Fatalf("VerifySession() error: %v", err)
	}
	if user != "alice" {
		t.Errorf("user = %q, want %q", user, "alice")
	}

	last := srv.LastRequest()
	if last.Path != "/api/v0/whoami" {
		t.Errorf("path = %q, want /api/v0/whoami", last.Path)
	}
	if got := last.Header.Get("Auth"); got != "abc123" {
		t.Errorf("Auth = %q, want %q", got, "abc123")
	}
}

func TestPublishDownloadQuery(t *testing.T) {
	ctx := context.Background()
	srv := registrytest.NewServer(t)
	srv.Approve("abc123", "alice")
	c := newClient(t, srv.URL)
	c.Authenticate("abc123")

	pub, err := c.PublishModule(ctx, "whois", whoisSource)
	if err != nil {
		t.Fatalf("PublishModule() error: %v", err)
	}
	if pub.Author != "alice" || pub.Name != "whois" || pub.Version != "0.1.0" {
		t.Errorf("PublishModule() = %+v", pub)
	}

	info, err := c.QueryModule(ctx, "alice/whois")
	if err != nil {
		t.Fatalf("QueryModule() error: %v", err)
	}
	if info.Latest == nil || *info.Latest != "0.1.0" {
		t.Errorf("Latest = %v, want 0.1.0", info.Latest)
	}
	if info.Description != "whois lookup" {
		t.Errorf("Description = %q, want %q", info.Description, "whois lookup")
	}

	dl, err := c.DownloadModule(ctx, "alice/whois", "0.1.0")
	if err != nil {
		t.Fatalf("DownloadModule() error: %v", err)
	}
	if dl.Code != whoisSource {
		t.Errorf("Code = %q, want the published source", dl.Code)
	}
}

func TestPublishRejected(t *testing.T) {
	ctx := context.Background()
	srv := registrytest.NewServer(t)
	srv.Approve("abc123", "alice")
	c := newClient(t, srv.URL)

	// No session: the registry refuses, the exchange itself succeeded.
	_, err := c.PublishModule(ctx, "whois", whoisSource)
	if !errors.IsApplication(err) {
		t.Fatalf("PublishModule() without session error = %v, want APPLICATION", err)
	}

	c.Authenticate("abc123")
	if _, err := c.PublishModule(ctx, "whois", whoisSource); err != nil {
		t.Fatalf("PublishModule() error: %v", err)
	}
	_, err = c.PublishModule(ctx, "whois", whoisSource)
	if !errors.IsApplication(err) {
		t.Fatalf("duplicate PublishModule() error = %v, want APPLICATION", err)
	}
	if got := srv.Versions("alice", "whois"); len(got) != 1 {
		t.Errorf("versions = %v, want exactly one", got)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := registrytest.NewServer(t)
	c := newClient(t, srv.URL)

	_, err := c.DownloadModule(context.Background(), "alice/missing", "1.0.0")
	if !errors.IsApplication(err) {
		t.Fatalf("error = %v, want APPLICATION", err)
	}
	if msg := errors.UserMessage(err); msg != "module not found" {
		t.Errorf("UserMessage() = %q, want %q", msg, "module not found")
	}
}

func TestConnectionRefused(t *testing.T) {
	// Grab a free address, then close the listener so connects are refused.
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL
	dead.Close()

	ctx := context.Background()
	c := newClient(t, base)
	c.Authenticate("abc123")

	checks := []struct {
		name string
		call func() error
	}{
		{"whoami", func() error { _, err := c.VerifySession(ctx); return err }},
		{"publish", func() error { _, err := c.PublishModule(ctx, "whois", whoisSource); return err }},
		{"download", func() error { _, err := c.DownloadModule(ctx, "alice/whois", "0.1.0"); return err }},
		{"info", func() error { _, err := c.QueryModule(ctx, "alice/whois"); return err }},
	}
	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, errors.ErrCodeTransport) {
				t.Fatalf("error = %v, want TRANSPORT", err)
			}
			if errors.Is(err, errors.ErrCodeDecode) || errors.IsApplication(err) {
				t.Errorf("transport failure misclassified: %v", err)
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	srv := registrytest.NewServer(t)
	c := newClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.QueryModule(ctx, "alice/whois"); !errors.Is(err, errors.ErrCodeTransport) {
		t.Errorf("error = %v, want TRANSPORT", err)
	}
}
