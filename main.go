package main

import (
	"os"

	"github.com/applypilot/applypilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
