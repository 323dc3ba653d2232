package main

import (
	"os"

	"github.com/okian/callscout/cmd/scout/cmd"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := cmd.Execute(version); err != nil {
		os.Stderr.WriteString("scout: " + err.Error() + "\n")
		os.Exit(1)
	}
}
