// Package settings provides build metadata, per-run settings, and context
// helpers used across the jvx CLI and library packages.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "jvx"

// VersionInformation is populated at build time via ldflags and holds the
// commit hash, semantic version, and build timestamp of the running binary.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Source describes where the document of a run comes from.
type Source struct {
	// Path is the input file; empty means stdin or no document.
	Path string
	// FromStdin is set when the document is piped in.
	FromStdin bool
	// Watch reloads Path when it changes.
	Watch bool
}

// Name returns the label shown for the document.
func (s Source) Name() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.FromStdin:
		return "stdin"
	}
	return ""
}

// Run holds settings for a single execution of the application.
type Run struct {
	LogLevel    string
	LogFile     string
	Source      Source
	Interactive bool
	NoColor     bool
	ExitOnError bool
}

// NewCliParams returns the defaults for a CLI run.
func NewCliParams() *Run {
	return &Run{
		LogLevel:    "info",
		ExitOnError: true,
	}
}
