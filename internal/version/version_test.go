package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetPrefersInjectedValues(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version = "v1.2.3"
	GitCommit = "0123456789abcdef"

	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.GitCommit != "0123456789abcdef" {
		t.Errorf("GitCommit = %q", info.GitCommit)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if !strings.Contains(info.Platform, runtime.GOARCH) {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestStringTruncatesCommit(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version = "v1.2.3"
	GitCommit = "0123456789abcdef"

	got := String()
	if !strings.HasPrefix(got, "v1.2.3 (0123456789ab") {
		t.Errorf("String() = %q", got)
	}
}
