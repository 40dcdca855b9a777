package version

// Version is the current version of selftrack.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/ornithopter83/selftrack/internal/version.Version=v1.0.0'"
var Version = "dev"
