package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/systmms/vaultdoor/cmd/vaultdoor/commands"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	root := commands.NewRootCommand(commands.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
