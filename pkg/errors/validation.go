package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// moduleSegmentRegex matches one author or module name segment.
var moduleSegmentRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateModuleName validates a module reference for safety and correctness.
// It rejects names that could be used for path traversal when they are
// spliced into registry URLs or installed on disk.
//
// A module reference is either a bare name ("whois") or an author-qualified
// name ("kpcyrd/whois"). Each segment must start with a letter or digit and
// contain only letters, digits, '-' and '_'. The whole reference is at most
// 128 characters.
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidModule, "module name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidModule, "module name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModule, "module name contains invalid control characters")
		}
	}

	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return New(ErrCodeInvalidModule, "module name must be <name> or <author>/<name>: %q", name)
	}
	for _, p := range parts {
		if !moduleSegmentRegex.MatchString(p) {
			return New(ErrCodeInvalidModule, "invalid module name: %q", name)
		}
	}

	return nil
}

// SplitModuleName splits an author-qualified module reference.
// It returns ok=false for a bare name.
func SplitModuleName(name string) (author, module string, ok bool) {
	author, module, ok = strings.Cut(name, "/")
	if !ok {
		return "", name, false
	}
	return author, module, true
}

// versionRegex matches registry version strings ("0.3.1", "1.0.0-rc1").
var versionRegex = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.+_-]*$`)

// ValidateVersion validates a module version string.
func ValidateVersion(version string) error {
	if version == "" {
		return New(ErrCodeInvalidVersion, "version cannot be empty")
	}
	if len(version) > 64 {
		return New(ErrCodeInvalidVersion, "version too long (max 64 characters)")
	}
	if strings.Contains(version, "..") || !versionRegex.MatchString(version) {
		return New(ErrCodeInvalidVersion, "invalid version: %q", version)
	}
	return nil
}

// ValidateURL validates a registry base address.
// It must parse, use the http or https scheme, and name a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "parse %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL has no host: %q", rawURL)
	}

	return nil
}
