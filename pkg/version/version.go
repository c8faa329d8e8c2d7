// Package version carries build identity injected at link time.
package version

// Set via -ldflags "-X github.com/coderecap/coderecap/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)
