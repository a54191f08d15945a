package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "1.0.0"
	AppName   = "ToxGuard API"
	BuildDate = "unknown"
)

// Info contains versioning information
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Configure overrides the build-time name and version with configured values.
// Empty values leave the current ones in place.
func Configure(appName, version string) {
	if appName != "" {
		AppName = appName
	}
	if version != "" {
		Version = version
	}
}

// GetInfo returns version information
func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
