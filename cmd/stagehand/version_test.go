package main

import (
	"strings"
	"testing"
)

func TestVersionLine(t *testing.T) {
	oldVersion := version
	oldCommit := commit
	oldDate := date
	defer func() {
		version = oldVersion
		commit = oldCommit
		date = oldDate
	}()

	tests := []struct {
		name                  string
		version, commit, date string
		want                  []string
	}{
		{name: "release version", version: "v0.3.0", commit: "none", date: "unknown", want: []string{"stagehand version v0.3.0"}},
		{name: "dev commit only", version: "dev", commit: "abcdef012345", date: "unknown", want: []string{"commit abcdef0"}},
		{name: "dev date only", version: "dev", commit: "none", date: "2026-09-01T10:00:00Z", want: []string{"built 2026-09-01T10:00:00Z"}},
		{name: "dev commit and date", version: "dev", commit: "abcdef012345", date: "2026-09-01T10:00:00Z",
			want: []string{"commit abcdef0", "built 2026-09-01T10:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, commit, date = tt.version, tt.commit, tt.date
			got := versionLine()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("versionLine() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestUnset(t *testing.T) {
	for _, s := range []string{"", " ", "none", "unknown"} {
		if !unset(s) {
			t.Errorf("unset(%q) = false", s)
		}
	}
	if unset("abc") {
		t.Error(`unset("abc") = true`)
	}
}
