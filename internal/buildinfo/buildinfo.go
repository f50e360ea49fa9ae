// Package buildinfo carries the build stamp set with -ldflags -X.
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version if stamped, else the commit, else "dev".
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	}
	return "dev"
}

// Long returns the full stamp for logs.
func Long() string {
	return Short() + " commit=" + Commit + " date=" + Date
}
