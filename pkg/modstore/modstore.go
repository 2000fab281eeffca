// Package modstore installs downloaded modules into a local directory tree.
//
// Modules are laid out as <dir>/<author>/<name>.lua, the layout the module
// loader searches. Installs are atomic: a reader sees either the previous
// file or the complete new one.
package modstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/modreg/pkg/errors"
	"github.com/matzehuels/modreg/pkg/registry"
)

const ext = ".lua"

// Store is a module directory.
type Store struct {
	dir string
}

// Module is an installed module.
type Module struct {
	Author string
	Name   string
	Path   string
}

// ID returns the author-qualified module reference.
func (m Module) ID() string { return m.Author + "/" + m.Name }

// New returns a store rooted at dir. The directory is created on first install.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "module directory is empty")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Path returns where author/name is installed. It fails with INVALID_MODULE
// for names that could escape the store.
func (s *Store) Path(author, name string) (string, error) {
	if author == "" {
		return "", errors.New(errors.ErrCodeInvalidModule, "module %q has no author", name)
	}
	if err := errors.ValidateModuleName(author + "/" + name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, author, name+ext), nil
}

// Install writes a downloaded module and returns its path.
func (s *Store) Install(dl *registry.DownloadResponse) (string, error) {
	if dl == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "nothing to install")
	}
	path, err := s.Path(dl.Author, dl.Name)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create module dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+dl.Name+"-*")
	if err != nil {
		return "", fmt.Errorf("install %s/%s: %w", dl.Author, dl.Name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(dl.Code); err != nil {
		tmp.Close()
		return "", fmt.Errorf("install %s/%s: %w", dl.Author, dl.Name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("install %s/%s: %w", dl.Author, dl.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("install %s/%s: %w", dl.Author, dl.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("install %s/%s: %w", dl.Author, dl.Name, err)
	}
	return path, nil
}

// List returns installed modules sorted by author, then name. A missing
// store directory is an empty store.
func (s *Store) List() ([]Module, error) {
	authors, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Module
	for _, a := range authors {
		if !a.IsDir() || strings.HasPrefix(a.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.dir, a.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			name, ok := strings.CutSuffix(f.Name(), ext)
			if f.IsDir() || !ok || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			out = append(out, Module{
				Author: a.Name(),
				Name:   name,
				Path:   filepath.Join(s.dir, a.Name(), f.Name()),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Author != out[j].Author {
			return out[i].Author < out[j].Author
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
