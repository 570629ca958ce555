// Package buildinfo reports the build description of the running binary.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Overridable at link time:
//
//	go build -ldflags "-X github.com/plotvault/plotvault-go/internal/infra/buildinfo.Version=v1.2.0"
//
// When left alone, the module version and VCS stamp recorded by the Go
// toolchain fill the gaps, so host binaries get useful values without
// wiring our ldflags into their build.
var (
	Version = "dev"
	Commit  = ""
)

// Info is the resolved build description.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

var resolve = sync.OnceValue(func() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		if info.Commit == "" {
			info.Commit = "unknown"
		}
		return info
	}

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
})

// Get returns the build description, resolved once per process.
func Get() Info {
	return resolve()
}

// String renders "version (commit)", shortening full commit hashes and
// marking builds from a dirty tree.
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "+dirty"
	}
	return i.Version + " (" + commit + ")"
}
