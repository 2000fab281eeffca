// Package buildinfo holds version information stamped in at link time:
//
//	go build -ldflags "-X github.com/matzehuels/modreg/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/modreg/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" ./cmd/modreg
package buildinfo

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// UserAgent is the User-Agent modreg sends to registries.
func UserAgent() string {
	return "modreg/" + Version
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}
