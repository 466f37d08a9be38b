package main

import (
	"os"

	"github.com/gostpanel/console/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
