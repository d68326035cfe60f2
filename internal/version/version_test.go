package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func stubBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	old := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = old })
}

func TestReadPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3"
	t.Cleanup(func() { buildVersion = old })
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Path: "pkt.systems/cmdweb", Version: "v9.9.9"}})

	if got := Read("").Build; got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestReadPseudoVersionFromVCS(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Main:      debug.Module{Path: "pkt.systems/cmdweb", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Read("1.0.0.2024")
	if info.Build != "v0.0.0-20250102030405-1234567890ab+dirty" {
		t.Fatalf("unexpected build %q", info.Build)
	}
	if !info.Modified || info.Revision != "1234567890abcdef" || info.GoVersion != "go1.25.0" {
		t.Fatalf("unexpected info %+v", info)
	}
	if got := info.Clean().Build; strings.HasSuffix(got, "+dirty") {
		t.Fatalf("expected clean build, got %q", got)
	}
}

func TestReadWithoutBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	info := Read("")
	if info.Name != "cmdweb" || info.Build != "v0.0.0-unknown" {
		t.Fatalf("unexpected fallback %+v", info)
	}
}

func TestStampWithoutTimeHasNoPseudoVersion(t *testing.T) {
	stamp := stampFromSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}})
	if stamp.pseudo() != "" {
		t.Fatalf("expected no pseudo version without vcs.time")
	}
}

func TestDescribeIncludesRelease(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Path: "pkt.systems/cmdweb"}})

	if got := Describe("1.0.0.2024"); got != "cmdweb 1.0.0.2024 (v1.2.3+dirty)" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := Describe(""); got != "cmdweb v1.2.3+dirty" {
		t.Fatalf("unexpected description without release %q", got)
	}
}
