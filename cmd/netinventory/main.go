// Command netinventory discovers and inventories devices on the local networks.
package main

import "github.com/anstrom/netinventory/cmd/cli"

// Set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
