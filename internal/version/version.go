// Package version exposes the build version string shared by the CLI
// and the gateway status surfaces.
package version

import "runtime/debug"

// Version is set by goreleaser ldflags. When built without ldflags
// (go install, tests) String falls back to module build info.
var Version = "dev"

// String returns the effective version.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
