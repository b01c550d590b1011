// Package version exposes the build information injected with -ldflags at build time, e.g.
//
//	go build -ldflags "-X github.com/information-sharing-networks/doc-verifier/internal/version.version=v1.2.0"
package version

import "runtime/debug"

// set by the linker
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

// Get returns the build information.
// When the binary was not built with ldflags, the VCS revision recorded by the go tool is used if available.
func Get() Info {
	info := Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}

	if info.GitCommit != "unknown" {
		return info
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
			case "vcs.time":
				if info.BuildDate == "unknown" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}
