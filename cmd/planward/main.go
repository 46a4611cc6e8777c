package main

import (
	"os"

	"github.com/Iron-Ham/planward/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
