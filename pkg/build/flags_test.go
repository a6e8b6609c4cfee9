// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing []string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", []string{"BuildName"}},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", []string{"BuildTime"}},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", []string{"BuildCommit"}},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", []string{"BuildVersion"}},
		{"Development build", "", "", "", "", []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"}},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				for _, flag := range tt.wantMissing {
					if !strings.Contains(err.Error(), flag+" is not set") {
						t.Errorf("Initialize() error = %v, want it to name %s", err, flag)
					}
				}
			}

			info := GetBuildFlags()
			if tt.buildName != "" && info.Name != tt.buildName {
				t.Errorf("Name = %v, want %v", info.Name, tt.buildName)
			}
			if tt.buildName == "" && info.Name != "fftune" {
				t.Errorf("Name = %v, want the default", info.Name)
			}
			if tt.buildVer == "" && info.Version != "dev" {
				t.Errorf("Version = %v, want dev", info.Version)
			}
			if info.Description != Description {
				t.Errorf("Description = %q", info.Description)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	i := Info{Name: "fftune", Version: "v1.0.0", Commit: "abc", Time: "today"}
	if got, want := i.String(), "fftune v1.0.0 (commit abc, built today)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
