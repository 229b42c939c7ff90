// Command artprovider runs an artwork provider and talks to a running one.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/artprovider/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "artprovider:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
