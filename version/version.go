package version

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/lessslie/olimpo-checkin/version.Version=..."
var (
	Version   string
	Commit    string
	BuildTime string
)

// Info fills whatever was not stamped at build time from the module's
// embedded build info.
func Info() (version, commit, buildTime string) {
	version, commit, buildTime = Version, Commit, BuildTime

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "":
			commit = s.Value
		case s.Key == "vcs.time" && buildTime == "":
			buildTime = s.Value
		}
	}
	return
}

func Print(w io.Writer) {
	v, c, t := Info()
	fmt.Fprintf(w, "Version: %s\n"+
		"Commit: %s\n"+
		"Build Time: %s\n",
		v,
		c,
		t,
	)
}
