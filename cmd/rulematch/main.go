package main

import (
	"os"

	"github.com/Ramsey-B/rulematch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
