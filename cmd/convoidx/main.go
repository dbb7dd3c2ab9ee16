// Command convoidx indexes and searches a local corpus of AI coding
// session logs.
package main

import (
	"fmt"
	"os"

	"github.com/convoidx/convoidx/cmd/convoidx/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, buildTime, gitCommit)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
