// Package version exposes the build identity stamped in through -ldflags.
package version

import "runtime"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const product = "streamhub"

// Info is served on /version and shown in the page footer.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// UserAgent identifies outbound calls to the platform APIs.
func UserAgent() string {
	return product + "/" + Version + " (" + runtime.Version() + ")"
}
