// Package version reports what binary is running: the release shown in the
// terminal banner plus the module build stamped by the Go toolchain.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/cmdweb"

// buildVersion is set via -ldflags "-X pkt.systems/cmdweb/internal/version.buildVersion=...".
var buildVersion = ""

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Name      string `json:"name" yaml:"name"`
	Module    string `json:"module" yaml:"module"`
	Release   string `json:"release,omitempty" yaml:"release,omitempty"`
	Build     string `json:"build" yaml:"build"`
	Revision  string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty" yaml:"modified,omitempty"`
	GoVersion string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
}

// Read collects version information. release is the user facing version
// printed by the ver command.
func Read(release string) Info {
	info := Info{
		Module:  defaultModule,
		Release: strings.TrimSpace(release),
		Build:   "v0.0.0-unknown",
	}
	bi, ok := readBuildInfo()
	var stamp vcsStamp
	if ok {
		if path := strings.TrimSpace(bi.Main.Path); path != "" {
			info.Module = path
		}
		info.GoVersion = bi.GoVersion
		stamp = stampFromSettings(bi.Settings)
		info.Revision = stamp.revision
		info.Modified = stamp.modified
	}
	info.Name = info.Module[strings.LastIndex(info.Module, "/")+1:]
	switch {
	case strings.TrimSpace(buildVersion) != "":
		info.Build = strings.TrimSpace(buildVersion)
	case ok && bi.Main.Version != "" && bi.Main.Version != "(devel)":
		info.Build = bi.Main.Version
	case stamp.pseudo() != "":
		info.Build = stamp.pseudo()
		if stamp.modified {
			info.Build += "+dirty"
		}
	}
	return info
}

// String renders "name release (build)", or "name build" without a release.
func (i Info) String() string {
	if i.Release == "" {
		return fmt.Sprintf("%s %s", i.Name, i.Build)
	}
	return fmt.Sprintf("%s %s (%s)", i.Name, i.Release, i.Build)
}

// Clean drops the +dirty marker from the build.
func (i Info) Clean() Info {
	i.Build = strings.TrimSuffix(i.Build, "+dirty")
	return i
}

// Describe is Read(release).String().
func Describe(release string) string {
	return Read(release).String()
}

type vcsStamp struct {
	revision string
	when     time.Time
	modified bool
}

func stampFromSettings(settings []debug.BuildSetting) vcsStamp {
	var stamp vcsStamp
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				stamp.when = parsed.UTC()
			}
		case "vcs.modified":
			stamp.modified = setting.Value == "true"
		}
	}
	return stamp
}

// pseudo formats a Go pseudo-version for an untagged commit.
func (s vcsStamp) pseudo() string {
	if s.revision == "" || s.when.IsZero() {
		return ""
	}
	rev := s.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return "v0.0.0-" + s.when.Format("20060102150405") + "-" + rev
}
