// Package version carries build metadata injected through ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/sitebuilder/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String formats the version line printed by --version.
func String() string {
	s := "sitebuilder " + Version
	if GitCommit != "unknown" && GitCommit != "" {
		s += fmt.Sprintf(" (%s", GitCommit)
		if BuildTime != "unknown" && BuildTime != "" {
			s += ", built " + BuildTime
		}
		s += ")"
	}
	return s
}
