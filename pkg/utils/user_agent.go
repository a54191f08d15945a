package utils

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

type UserAgentInfo struct {
	Device  string
	OS      string
	Browser string
	Locale  string
}

// ParseUserAgent returns nil when the device type is not recognised, which covers
// curl, SDKs and most bots.
func ParseUserAgent(uaString string, acceptLanguage string) *UserAgentInfo {
	ua := uasurfer.Parse(uaString)

	var device string
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "Computer"
	case uasurfer.DeviceTablet:
		device = "Tablet"
	case uasurfer.DevicePhone:
		device = "Phone"
	case uasurfer.DeviceConsole:
		device = "Console"
	case uasurfer.DeviceWearable:
		device = "Wearable"
	case uasurfer.DeviceTV:
		device = "TV"
	default:
		return nil
	}

	locale, _, _ := strings.Cut(acceptLanguage, ",")

	return &UserAgentInfo{
		Device:  device,
		OS:      fmt.Sprintf("%s %d.%d", ua.OS.Name.String(), ua.OS.Version.Major, ua.OS.Version.Minor),
		Browser: fmt.Sprintf("%s %d.%d", ua.Browser.Name.String(), ua.Browser.Version.Major, ua.Browser.Version.Minor),
		Locale:  strings.TrimSpace(locale),
	}
}
