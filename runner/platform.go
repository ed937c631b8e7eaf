package runner

import (
	"runtime"
	"sync"
)

// Platform is the operating system family the runner is launched on
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformOther   Platform = "other"
)

// detectPlatform runs at most once per process
var detectPlatform = sync.OnceValue(func() Platform {
	return platformFromGOOS(runtime.GOOS)
})

// HostPlatform returns the platform family of the current process
func HostPlatform() Platform {
	return detectPlatform()
}

// platformFromGOOS matches the GOOS exactly: a substring match on "win" would also catch darwin.
func platformFromGOOS(goos string) Platform {
	if goos == "windows" {
		return PlatformWindows
	}
	return PlatformOther
}
