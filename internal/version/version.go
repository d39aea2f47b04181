// Package version reports build information embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// Version can be overridden at link time with
// -ldflags "-X github.com/algointent/walletcore/internal/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // Set by the linker
var Version = ""

// Info describes the running binary.
type Info struct {
	Version    string    `json:"version"`
	Commit     string    `json:"commit"`
	Dirty      bool      `json:"dirty,omitempty"`
	CommitTime time.Time `json:"commit_time,omitzero"`
	GoVersion  string    `json:"go_version"`
	Platform   string    `json:"platform"`
}

// Get returns the build information of the current binary.
func Get() Info {
	v := Version
	if v == "" {
		v = versioninfo.Version
	}
	return Info{
		Version:    v,
		Commit:     versioninfo.Revision,
		Dirty:      versioninfo.DirtyBuild,
		CommitTime: versioninfo.LastCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns a one-word identifier, preferring the release version.
func Short() string {
	if Version != "" {
		return Version
	}
	return versioninfo.Short()
}

// UserAgent returns the value sent to the ledger node.
func UserAgent() string {
	return fmt.Sprintf("walletcore/%s (%s/%s)", Short(), runtime.GOOS, runtime.GOARCH)
}

// String renders Info on one line.
func (i Info) String() string {
	s := fmt.Sprintf("walletcore %s (commit %s", i.Version, i.Commit)
	if i.Dirty {
		s += ", dirty"
	}
	return s + fmt.Sprintf(", %s, %s)", i.GoVersion, i.Platform)
}
