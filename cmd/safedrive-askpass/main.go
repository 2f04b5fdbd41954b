// Command safedrive-askpass implements the SAFEDRIVE_PASSWORD environment
// contract as a standalone helper binary, the same shape as ssh's
// SSH_ASKPASS or a git credential helper: it writes the password to stdout
// and exits 0, or exits 1 if none is set. It is invoked by the engine as a
// subprocess (via SAFEDRIVE_ASKPASS), never linked into the main CLI, so it
// can be swapped for a GUI prompt without touching safedrive itself.
package main

import (
	"fmt"
	"os"
)

func main() {
	password := os.Getenv("SAFEDRIVE_PASSWORD")
	if password == "" {
		os.Exit(1)
	}
	fmt.Print(password)
}
