// Package version provides build-time version information
package version

var (
	// Version is the semantic version (set via ldflags)
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash (set via ldflags)
	GitCommit = "unknown"

	// BuildTime is the build timestamp (set via ldflags)
	BuildTime = "unknown"
)

// Info returns a formatted version string
func Info() string {
	return "Hisho " + Version + " (" + GitCommit + ") built at " + BuildTime
}

// UserAgent is the User-Agent header sent by outbound HTTP clients.
// Wikipedia in particular rejects requests without a descriptive agent.
func UserAgent() string {
	return "Hisho/" + Version + " (+https://github.com/bdobrica/Hisho)"
}
