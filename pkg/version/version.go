// Package version carries the build stamp shown by "newtsim version", the
// /healthz endpoint and the simulated "display version" banner.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/newtron-network/newtsim/pkg/version.Version=v1.0.0 \
//	  -X github.com/newtron-network/newtsim/pkg/version.GitCommit=abc1234"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Dev reports whether the binary was built without a version stamp.
func Dev() bool { return Version == "dev" }

// Info returns the full stamp for display.
func Info() string {
	if Dev() {
		return "dev build (use 'make build' for version info)"
	}
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// Release is the version as simulated devices report it: the stamp without a
// leading "v", or "0.0.0" for dev builds.
func Release() string {
	if Dev() {
		return "0.0.0"
	}
	if len(Version) > 1 && Version[0] == 'v' {
		return Version[1:]
	}
	return Version
}
