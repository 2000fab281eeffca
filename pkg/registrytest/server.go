// Package registrytest provides an in-memory module registry for tests.
//
// The fake speaks the same envelope protocol as the real registry and
// records every request it receives, so tests can assert on headers and
// bodies the client sent:
//
//	srv := registrytest.NewServer(t)
//	srv.Approve("abc123", "alice")
//
//	client, _ := registry.New(srv.URL)
//	client.Authenticate("abc123")
//	user, _ := client.VerifySession(ctx)  // "alice"
//	srv.LastRequest().Header.Get("Auth")  // "abc123"
package registrytest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/modreg/pkg/registry"
)

// Request is a request as the fake registry received it.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type module struct {
	author      string
	name        string
	description string
	versions    map[string]string // version -> code
	order       []string          // versions in publish order
}

// Server is a fake registry backed by an [httptest.Server].
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]string  // token -> user
	modules  map[string]*module // "author/name" -> module
	requests []Request
}

// NewServer starts a fake registry and closes it when tb finishes.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	s := &Server{
		sessions: make(map[string]string),
		modules:  make(map[string]*module),
	}
	s.Server = httptest.NewServer(s.routes())
	tb.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/whoami", s.whoami)
		r.Post("/publish/{name}", s.publish)
		r.Get("/dl/{author}/{name}/{version}", s.download)
		r.Get("/info/{author}/{name}", s.info)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, registry.Fail("not found"))
	})
	return r
}

// Approve associates token with user, as a completed browser login would.
func (s *Server) Approve(token, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = user
}

// AddVersion stores code as version of author/name, creating the module if
// needed. description is only applied when the module is created.
func (s *Server) AddVersion(author, name, description, version, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addVersionLocked(author, name, description, version, code)
}

func (s *Server) addVersionLocked(author, name, description, version, code string) {
	key := author + "/" + name
	m, ok := s.modules[key]
	if !ok {
		m = &module{author: author, name: name, description: description, versions: make(map[string]string)}
		s.modules[key] = m
	}
	m.versions[version] = code
	m.order = append(m.order, version)
}

// Versions returns the published versions of author/name, sorted.
func (s *Server) Versions(author, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[author+"/"+name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.versions))
	for v := range m.versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Requests returns every request received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request. It panics if there is none.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// user resolves the Auth header. It reports false for a missing or unknown token.
func (s *Server) user(r *http.Request) (string, bool) {
	token := r.Header.Get("Auth")
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.sessions[token]
	return user, ok
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(r)
	if !ok {
		writeJSON(w, http.StatusForbidden, registry.Fail("invalid session"))
		return
	}
	writeJSON(w, http.StatusOK, registry.OK(registry.WhoamiResponse{User: user}))
}

// versionLine matches the metadata header a module declares its version in.
var versionLine = regexp.MustCompile(`(?m)^--\s*Version:\s*(\S+)\s*$`)

// descriptionLine matches the optional description header.
var descriptionLine = regexp.MustCompile(`(?m)^--\s*Description:\s*(.+?)\s*$`)

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(r)
	if !ok {
		writeJSON(w, http.StatusForbidden, registry.Fail("invalid session"))
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		writeJSON(w, http.StatusUnsupportedMediaType, registry.Fail("unsupported content type: "+ct))
		return
	}

	var req registry.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, registry.Fail("invalid request body"))
		return
	}

	m := versionLine.FindStringSubmatch(req.Code)
	if m == nil {
		writeJSON(w, http.StatusBadRequest, registry.Fail("module is missing a version"))
		return
	}
	version := m[1]
	var description string
	if d := descriptionLine.FindStringSubmatch(req.Code); d != nil {
		description = d[1]
	}

	name := chi.URLParam(r, "name")

	s.mu.Lock()
	if existing, ok := s.modules[user+"/"+name]; ok {
		if _, dup := existing.versions[version]; dup {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, registry.Fail(fmt.Sprintf("version %s already exists", version)))
			return
		}
	}
	s.addVersionLocked(user, name, description, version, req.Code)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, registry.OK(registry.PublishResponse{
		Author:  user,
		Name:    name,
		Version: version,
	}))
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	author, name, version := chi.URLParam(r, "author"), chi.URLParam(r, "name"), chi.URLParam(r, "version")

	s.mu.Lock()
	m, ok := s.modules[author+"/"+name]
	var code string
	var found bool
	if ok {
		code, found = m.versions[version]
	}
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, registry.Fail("module not found"))
		return
	}
	writeJSON(w, http.StatusOK, registry.OK(registry.DownloadResponse{
		Author:  author,
		Name:    name,
		Version: version,
		Code:    code,
	}))
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	author, name := chi.URLParam(r, "author"), chi.URLParam(r, "name")

	s.mu.Lock()
	m, ok := s.modules[author+"/"+name]
	var resp registry.ModuleInfoResponse
	if ok {
		resp = registry.ModuleInfoResponse{Author: m.author, Name: m.name, Description: m.description}
		if n := len(m.order); n > 0 {
			latest := m.order[n-1]
			resp.Latest = &latest
		}
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, registry.Fail("module not found"))
		return
	}
	writeJSON(w, http.StatusOK, registry.OK(resp))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
