package main

import (
	"fmt"
	"runtime/debug"

	"github.com/jfarrell/icloud-cli/cmd"
)

// Version is overridable at build time with
// -ldflags "-X main.Version=...". Without that it falls back to
// whatever the Go build info can tell us.
var Version = "dev"

func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return Version
	}

	// `go install module@vX.Y.Z` stamps the module version directly.
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return Version
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		return fmt.Sprintf("devel+%s+dirty", rev)
	}
	return fmt.Sprintf("devel+%s", rev)
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
