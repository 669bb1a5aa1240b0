// Package sysinfo reports static host and display metadata.
package sysinfo

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/desk-next/deskcli/display"
)

// Info describes the host OS and display. It is computed once at startup and
// immutable afterward, so concurrent readers need no locking.
type Info struct {
	OSType        string `json:"os_type"`
	OSVersion     string `json:"os_version"`
	DisplayWidth  int    `json:"display_width"`
	DisplayHeight int    `json:"display_height"`
}

var (
	once   sync.Once
	cached Info
	err    error
)

// Collect gathers system info on the first call and serves the cached value
// thereafter. The driver is only consulted during that first call, before
// the queue takes ownership of it.
func Collect(driver display.Driver) (Info, error) {
	once.Do(func() {
		cached, err = collect(driver)
	})
	return cached, err
}

func collect(driver display.Driver) (Info, error) {
	width, height, sizeErr := driver.Size()
	if sizeErr != nil {
		return Info{}, fmt.Errorf("failed to read display size: %w", sizeErr)
	}

	info := Info{
		OSType:        runtime.GOOS,
		OSVersion:     "unknown",
		DisplayWidth:  width,
		DisplayHeight: height,
	}

	if hi, hostErr := host.Info(); hostErr == nil {
		if hi.Platform != "" {
			info.OSType = hi.Platform
		}
		if hi.PlatformVersion != "" {
			info.OSVersion = hi.PlatformVersion
		}
	}

	return info, nil
}
