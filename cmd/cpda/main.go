// Command cpda is the command line client of the compound analysis pipeline.
package main

import (
	"os"

	"github.com/turtacn/compound-analysis/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
