// Package buildinfo carries version metadata stamped at link time:
//
//	-X 'github.com/ileafrica/ilebot/core/buildinfo.Version=v0.3.1'
//	-X 'github.com/ileafrica/ilebot/core/buildinfo.Commit=4e1c2a9'
//	-X 'github.com/ileafrica/ilebot/core/buildinfo.Date=2026-10-01T09:00:00Z'
package buildinfo

var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the VCS revision of the build.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)
