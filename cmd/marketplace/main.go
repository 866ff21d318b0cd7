package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/iliyamo/service-marketplace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil { // Run the selected subcommand
		fmt.Fprintln(os.Stderr, "marketplace:", err)
		os.Exit(1)
	}
}
