// Package version holds the tool version string.
package version

// Version is set at build time via -ldflags for release builds.
var Version = "0.3.0-dev"
