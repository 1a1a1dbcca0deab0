// Command invoicectl reads invoice reports and asks the analytics service
// questions from a terminal.
package main

import (
	"os"

	"invoice-analytics/pkg/cli"
)

// Set with -ldflags "-X main.version=... -X main.commit=..." at release time.
var (
	version = "dev"
	commit  = ""
)

func main() {
	cli.SetBuildInfo(version, commit)
	os.Exit(cli.Execute())
}
