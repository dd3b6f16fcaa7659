// Command nexus is a terminal client for Gemini chat, image generation and
// live voice.
package main

import (
	"os"

	"go.aimuz.me/nexus/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		os.Exit(1)
	}
}
