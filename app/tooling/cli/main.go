// This program drives a demochain node from the terminal or runs a mining
// round locally.
package main

import (
	"os"

	"github.com/watoukuang/demochain/app/tooling/cli/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
