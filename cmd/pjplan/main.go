// Pjplan is a CLI tool for scheduling projects against resource calendars.
package main

import (
	"fmt"
	"os"

	"github.com/swamp-dev/pjplan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
