// Package version carries the build metadata stamped into the
// localstack-studio binaries at link time. The server exposes it on the
// /version endpoint so a running console can be matched to a commit.
package version

import "runtime"

// Stamped via -ldflags "-X .../internal/version.Version=..." and friends;
// the zero values identify a plain `go build` from a working tree.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the JSON shape served by the /version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get combines the stamped values with the runtime's Go version.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
