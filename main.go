package main

import (
	"os"

	"github.com/fsbadge/fsbadge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
