package main

import (
	"github.com/CJuwaneme1704/SentinelIQ/cmd"
)

// version will be set by goreleaser during build
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
