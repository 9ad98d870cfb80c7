package version

import "fmt"

// these values are set at build time via ldflags
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"

	FullVersion = fmt.Sprintf("%s (%s) built at %s", Version, GitCommit, BuildDate)
)
