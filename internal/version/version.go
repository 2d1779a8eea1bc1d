package version

// version is injected at build time via -ldflags.
var version = "v0.0.0"

// Version returns the build version string.
func Version() string {
	return version
}
