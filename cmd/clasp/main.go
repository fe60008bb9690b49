// Command clasp finds repeated CSS utility class combinations in template
// files and ranks them as component extraction candidates.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	// CLASP_CONFIG and friends may come from a local .env file.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
