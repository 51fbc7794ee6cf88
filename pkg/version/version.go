package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/jonny/insight-bot/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("insight-bot %s (commit: %s, built: %s, %s)", Version, Commit, BuildTime, runtime.Version())
}

// UserAgent identifies the bot on outbound HTTP requests.
func UserAgent() string {
	return "insight-bot/" + Version
}
